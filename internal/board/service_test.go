package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanbanlive/internal/activity"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
	"kanbanlive/internal/ordering"
	"kanbanlive/internal/repository"
)

// memStore keeps boards, lists, tasks and members in maps and mirrors the repository move rules.
type memStore struct {
	mu      sync.Mutex
	clock   time.Time
	boards  map[uuid.UUID]model.Board
	lists   map[uuid.UUID]model.List
	tasks   map[uuid.UUID]model.Task
	roles   map[[2]uuid.UUID]model.Role
	users   map[string]model.User
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		boards: map[uuid.UUID]model.Board{},
		lists:  map[uuid.UUID]model.List{},
		tasks:  map[uuid.UUID]model.Task{},
		roles:  map[[2]uuid.UUID]model.Role{},
		users:  map[string]model.User{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memBoards struct{ *memStore }

func (b memBoards) Create(_ context.Context, board *model.Board) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	board.ID = uuid.New()
	board.CreatedAt = b.tick()
	b.boards[board.ID] = *board
	b.roles[[2]uuid.UUID{board.ID, board.OwnerID}] = model.RoleOwner
	return nil
}

func (b memBoards) GetForUser(_ context.Context, userID uuid.UUID) ([]model.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Board
	for _, board := range b.boards {
		if _, ok := b.roles[[2]uuid.UUID{board.ID, userID}]; ok {
			out = append(out, board)
		}
	}
	return out, nil
}

func (b memBoards) GetByID(_ context.Context, id uuid.UUID) (*model.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	board, ok := b.boards[id]
	if !ok {
		return nil, repository.ErrBoardNotFound
	}
	return &board, nil
}

func (b memBoards) Update(_ context.Context, board *model.Board) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.boards[board.ID] = *board
	return nil
}

func (b memBoards) Delete(_ context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.boards, id)
	return nil
}

type memLists struct{ *memStore }

func (l memLists) siblings(boardID uuid.UUID) []model.List {
	var out []model.List
	for _, list := range l.lists {
		if list.BoardID == boardID {
			out = append(out, list)
		}
	}
	return ordering.Sorted(out)
}

func (l memLists) CreateAtEnd(_ context.Context, list *model.List) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	list.ID = uuid.New()
	list.CreatedAt = l.tick()
	list.Position = ordering.AppendPosition(len(l.siblings(list.BoardID)))
	l.lists[list.ID] = *list
	return nil
}

func (l memLists) GetByID(_ context.Context, id uuid.UUID) (*model.List, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, ok := l.lists[id]
	if !ok {
		return nil, repository.ErrListNotFound
	}
	return &list, nil
}

func (l memLists) GetByBoardID(_ context.Context, boardID uuid.UUID) ([]model.List, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.siblings(boardID), nil
}

func (l memLists) Rename(_ context.Context, id uuid.UUID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := l.lists[id]
	list.Name = name
	l.lists[id] = list
	return nil
}

func (l memLists) Delete(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lists, id)
	for tid, t := range l.tasks {
		if t.ListID == id {
			delete(l.tasks, tid)
		}
	}
	return nil
}

func (l memLists) Move(_ context.Context, id uuid.UUID, index int) (*model.List, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list, ok := l.lists[id]
	if !ok {
		return nil, repository.ErrListNotFound
	}
	placed := ordering.Insert(l.siblings(list.BoardID), list, index)
	for _, p := range placed {
		l.lists[p.ID] = p
	}
	moved := l.lists[id]
	return &moved, nil
}

type memTasks struct {
	*memStore
	writes int
}

func (t *memTasks) siblings(listID uuid.UUID) []model.Task {
	var out []model.Task
	for _, task := range t.tasks {
		if task.ListID == listID {
			out = append(out, task)
		}
	}
	return ordering.Sorted(out)
}

func (t *memTasks) CreateAtEnd(_ context.Context, task *model.Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task.ID = uuid.New()
	task.CreatedAt = t.tick()
	task.Position = ordering.AppendPosition(len(t.siblings(task.ListID)))
	t.tasks[task.ID] = *task
	return nil
}

func (t *memTasks) GetByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return &task, nil
}

func (t *memTasks) GetByListID(_ context.Context, listID uuid.UUID) ([]model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.siblings(listID), nil
}

func (t *memTasks) GetByBoardID(_ context.Context, boardID uuid.UUID, _ string) ([]model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.Task
	for _, task := range t.tasks {
		if task.BoardID == boardID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (t *memTasks) Update(_ context.Context, task *model.Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[task.ID] = *task
	return nil
}

func (t *memTasks) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, id)
	return nil
}

func (t *memTasks) Move(_ context.Context, taskID, listID uuid.UUID, index int) (*repository.MoveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failErr != nil {
		return nil, t.failErr
	}
	task, ok := t.tasks[taskID]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	dest, ok := t.lists[listID]
	if !ok {
		return nil, repository.ErrListNotFound
	}
	if dest.BoardID != task.BoardID {
		return nil, repository.ErrCrossBoardMove
	}
	from := task.ListID
	task.ListID = listID
	placed := ordering.Place(t.siblings(listID), task, index)
	changes := ordering.Renumber(placed)
	if from != listID {
		changes = append(changes, ordering.Renumber(ordering.Without(t.siblings(from), taskID))...)
	}
	for _, c := range changes {
		row := t.tasks[c.ID]
		row.Position = c.Position
		t.tasks[c.ID] = row
		t.writes++
	}
	if from != listID {
		row := t.tasks[taskID]
		row.ListID = listID
		t.tasks[taskID] = row
	}
	return &repository.MoveResult{Task: t.tasks[taskID], FromListID: from}, nil
}

func (t *memTasks) AssignUser(_ context.Context, taskID, userID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := t.tasks[taskID]
	task.AssignedTo = &userID
	t.tasks[taskID] = task
	return nil
}

func (t *memTasks) UnassignUser(_ context.Context, taskID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := t.tasks[taskID]
	task.AssignedTo = nil
	t.tasks[taskID] = task
	return nil
}

type memMembers struct{ *memStore }

func (m memMembers) Add(_ context.Context, boardID, userID uuid.UUID, role model.Role) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[[2]uuid.UUID{boardID, userID}] = role
	return &model.Member{BoardID: boardID, UserID: userID, Role: role}, nil
}

func (m memMembers) Remove(_ context.Context, boardID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{boardID, userID}
	if _, ok := m.roles[key]; !ok {
		return repository.ErrMemberNotFound
	}
	delete(m.roles, key)
	return nil
}

func (m memMembers) GetByBoardID(_ context.Context, boardID uuid.UUID) ([]model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Member
	for k, role := range m.roles {
		if k[0] == boardID {
			out = append(out, model.Member{BoardID: boardID, UserID: k[1], Role: role})
		}
	}
	return out, nil
}

func (m memMembers) GetRole(_ context.Context, boardID, userID uuid.UUID) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[[2]uuid.UUID{boardID, userID}], nil
}

type memUsers struct{ *memStore }

func (u memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

type recordingTrail struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *recordingTrail) Append(e activity.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingTrail) List(context.Context, uuid.UUID, int) ([]model.ActivityEntry, error) {
	return nil, nil
}

func (r *recordingTrail) actions() []model.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	svc   *Service
	store *memStore
	tasks *memTasks
	trail *recordingTrail
	pub   *recordingPublisher
	owner uuid.UUID
	board *model.Board
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	tasks := &memTasks{memStore: store}
	trail := &recordingTrail{}
	pub := &recordingPublisher{}
	svc := NewService(Stores{
		Boards:  memBoards{store},
		Lists:   memLists{store},
		Tasks:   tasks,
		Members: memMembers{store},
		Users:   memUsers{store},
	}, trail, pub, nil)

	owner := uuid.New()
	board, err := svc.CreateBoard(context.Background(), owner, "Roadmap", "")
	require.NoError(t, err)
	trail.entries = nil
	return &fixture{svc: svc, store: store, tasks: tasks, trail: trail, pub: pub, owner: owner, board: board}
}

func (f *fixture) list(t *testing.T, name string) *model.List {
	t.Helper()
	list, err := f.svc.CreateList(context.Background(), f.owner, f.board.ID, name)
	require.NoError(t, err)
	return list
}

func (f *fixture) task(t *testing.T, listID uuid.UUID, title string) *model.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), f.owner, listID, NewTask{Title: title})
	require.NoError(t, err)
	return task
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestCreateList_AppendsAfterExisting(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Todo", "Doing", "Done"} {
		f.list(t, name)
	}

	list := f.list(t, "Archive")

	assert.Equal(t, 3, list.Position)
	assert.Equal(t, f.board.ID, list.BoardID)
	assert.Contains(t, f.pub.events, notify.Event{BoardID: f.board.ID, Collection: notify.CollectionLists, Operation: notify.OperationInsert})
}

func TestCreateTask_TakesBoardFromList(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")

	task := f.task(t, list.ID, "  Write docs  ")

	assert.Equal(t, f.board.ID, task.BoardID)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, 0, task.Position)
	require.NotNil(t, task.CreatedBy)
	assert.Equal(t, f.owner, *task.CreatedBy)
}

func TestMoveTask_AcrossLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := f.list(t, "L1")
	l2 := f.list(t, "L2")
	t1 := f.task(t, l1.ID, "T1")
	f.task(t, l1.ID, "T2")
	f.task(t, l2.ID, "T3")
	f.trail.entries = nil
	f.pub.events = nil

	moved, err := f.svc.MoveTask(ctx, f.owner, t1.ID, l2.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, l2.ID, moved.ListID)
	assert.Equal(t, 0, moved.Position)

	inL1, err := f.svc.ListTasks(ctx, f.owner, l1.ID)
	require.NoError(t, err)
	inL2, err := f.svc.ListTasks(ctx, f.owner, l2.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"T2"}, titles(inL1))
	assert.Equal(t, 0, inL1[0].Position)
	assert.Equal(t, []string{"T1", "T3"}, titles(inL2))
	assert.Equal(t, 1, inL2[1].Position)

	assert.Equal(t, []model.Action{model.ActionMoved}, f.trail.actions())
	details := f.trail.entries[0].Details
	assert.Equal(t, l1.ID.String(), details["from_list"])
	assert.Equal(t, l2.ID.String(), details["to_list"])
	assert.Equal(t, []notify.Event{{BoardID: f.board.ID, Collection: notify.CollectionTasks, Operation: notify.OperationUpdate}}, f.pub.events)
}

func TestMoveTask_SameSlotWritesNothing(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")
	f.task(t, list.ID, "A")
	b := f.task(t, list.ID, "B")
	f.task(t, list.ID, "C")

	for i := 0; i < 2; i++ {
		moved, err := f.svc.MoveTask(context.Background(), f.owner, b.ID, list.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, moved.Position)
	}
	assert.Zero(t, f.tasks.writes)

	tasks, err := f.svc.ListTasks(context.Background(), f.owner, list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles(tasks))
}

func TestMoveTask_IndexBeyondEndIsClamped(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")
	a := f.task(t, list.ID, "A")
	f.task(t, list.ID, "B")

	moved, err := f.svc.MoveTask(context.Background(), f.owner, a.ID, list.ID, 99)

	require.NoError(t, err)
	assert.Equal(t, 1, moved.Position)
}

func TestMoveTask_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.list(t, "Todo")
	task := f.task(t, list.ID, "A")

	t.Run("unknown task", func(t *testing.T) {
		_, err := f.svc.MoveTask(ctx, f.owner, uuid.New(), list.ID, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, err := f.svc.MoveTask(ctx, f.owner, task.ID, uuid.New(), 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := f.svc.MoveTask(ctx, f.owner, task.ID, list.ID, -1)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := f.svc.MoveTask(ctx, uuid.New(), task.ID, list.ID, 0)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("viewer", func(t *testing.T) {
		viewer := uuid.New()
		f.store.roles[[2]uuid.UUID{f.board.ID, viewer}] = model.RoleViewer
		_, err := f.svc.MoveTask(ctx, viewer, task.ID, list.ID, 0)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("another board", func(t *testing.T) {
		other, err := f.svc.CreateBoard(ctx, f.owner, "Other", "")
		require.NoError(t, err)
		foreign, err := f.svc.CreateList(ctx, f.owner, other.ID, "Elsewhere")
		require.NoError(t, err)
		_, err = f.svc.MoveTask(ctx, f.owner, task.ID, foreign.ID, 0)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f.store.failErr = &pgconn.PgError{Code: "40001"}
		defer func() { f.store.failErr = nil }()
		_, err := f.svc.MoveTask(ctx, f.owner, task.ID, list.ID, 0)
		assert.ErrorIs(t, err, ErrTransient)
		assert.True(t, IsRetryable(err))
	})
}

func TestMoveTask_FailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")
	task := f.task(t, list.ID, "A")
	f.trail.entries = nil
	f.pub.events = nil

	_, err := f.svc.MoveTask(context.Background(), uuid.New(), task.ID, list.ID, 0)

	require.Error(t, err)
	assert.Empty(t, f.trail.entries)
	assert.Empty(t, f.pub.events)
}

func TestMoveTask_PublishFailureDoesNotFailMove(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")
	task := f.task(t, list.ID, "A")
	f.pub.err = errors.New("redis down")

	_, err := f.svc.MoveTask(context.Background(), f.owner, task.ID, list.ID, 0)

	assert.NoError(t, err)
}

func TestMoveList(t *testing.T) {
	f := newFixture(t)
	a := f.list(t, "A")
	f.list(t, "B")
	f.list(t, "C")

	moved, err := f.svc.MoveList(context.Background(), f.owner, a.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Position)

	lists, err := f.svc.Lists(context.Background(), f.owner, f.board.ID)
	require.NoError(t, err)
	names := make([]string, len(lists))
	for i, l := range lists {
		names[i] = l.Name
		assert.Equal(t, i, l.Position)
	}
	assert.Equal(t, []string{"B", "C", "A"}, names)
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := model.User{ID: uuid.New(), Email: "guest@example.com"}
	f.store.users[guest.Email] = guest

	member, err := f.svc.AddMember(ctx, f.owner, f.board.ID, " Guest@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, member.Role)
	assert.Equal(t, guest.Email, member.User.Email)

	_, err = f.svc.AddMember(ctx, f.owner, f.board.ID, "nobody@example.com", model.RoleViewer)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddMember(ctx, f.owner, f.board.ID, guest.Email, model.RoleOwner)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRemoveMember_OwnerStays(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RemoveMember(context.Background(), f.owner, f.board.ID, f.owner)

	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateTask_AssigneeMustBeMember(t *testing.T) {
	f := newFixture(t)
	list := f.list(t, "Todo")
	task := f.task(t, list.ID, "A")
	stranger := uuid.New()

	_, err := f.svc.UpdateTask(context.Background(), f.owner, task.ID, TaskUpdate{AssignedTo: &stranger})
	assert.ErrorIs(t, err, ErrInvalid)

	urgent := model.PriorityUrgent
	updated, err := f.svc.UpdateTask(context.Background(), f.owner, task.ID, TaskUpdate{Priority: &urgent, AssignedTo: &f.owner})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityUrgent, updated.Priority)
	assert.Equal(t, &f.owner, updated.AssignedTo)
}

func TestDeleteBoard_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	editor := uuid.New()
	f.store.roles[[2]uuid.UUID{f.board.ID, editor}] = model.RoleEditor

	assert.ErrorIs(t, f.svc.DeleteBoard(context.Background(), editor, f.board.ID), ErrPermissionDenied)
	assert.NoError(t, f.svc.DeleteBoard(context.Background(), f.owner, f.board.ID))
	_, err := f.svc.Board(context.Background(), f.owner, f.board.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
