package boardview

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
	"kanbanlive/internal/ordering"
)

type pendingMove struct {
	seq      uint64
	parentID uuid.UUID
	index    int
}

// pendingMoves holds in-flight optimistic moves keyed by entity id. chain holds, per entity, a
// channel closed when the most recently issued move of that entity has finished.
type pendingMoves struct {
	tasks map[uuid.UUID]pendingMove
	lists map[uuid.UUID]pendingMove
	chain map[uuid.UUID]chan struct{}
}

func newPendingMoves() pendingMoves {
	return pendingMoves{
		tasks: make(map[uuid.UUID]pendingMove),
		lists: make(map[uuid.UUID]pendingMove),
		chain: make(map[uuid.UUID]chan struct{}),
	}
}

// issuedMove is one move's slot in its entity's chain.
type issuedMove struct {
	seq  uint64
	prev chan struct{}
	done chan struct{}
}

// MoveTask applies the move locally, sends it to the backend, and refetches tasks whatever the
// outcome. On failure the optimistic placement is dropped and the error returned. Moves of the
// same task reach the backend in the order they were issued.
func (v *View) MoveTask(ctx context.Context, taskID, listID uuid.UUID, index int) (*model.Task, error) {
	mv := v.addPending(v.pending.tasks, taskID, listID, index)

	var (
		moved *model.Task
		err   error
	)
	if err = v.awaitTurn(ctx, taskID, mv); err == nil {
		moved, err = v.backend.MoveTask(ctx, taskID, listID, index)
		v.finishTurn(taskID, mv)
	}

	v.mu.Lock()
	v.dropPendingLocked(v.pending.tasks, taskID, mv.seq)
	if err == nil {
		v.tasks = applyTaskMove(v.tasks, taskID, listID, index)
		f := v.fetch[notify.CollectionTasks]
		f.applied = f.issued
	}
	v.mu.Unlock()

	v.invalidate(notify.CollectionTasks, true)
	v.signal()
	if err != nil {
		v.logger.WithError(err).WithField("task_id", taskID.String()).Warn("task move failed, reverted")
		return nil, err
	}
	return moved, nil
}

func (v *View) MoveList(ctx context.Context, listID uuid.UUID, index int) (*model.List, error) {
	mv := v.addPending(v.pending.lists, listID, v.boardID, index)

	var (
		moved *model.List
		err   error
	)
	if err = v.awaitTurn(ctx, listID, mv); err == nil {
		moved, err = v.backend.MoveList(ctx, listID, index)
		v.finishTurn(listID, mv)
	}

	v.mu.Lock()
	v.dropPendingLocked(v.pending.lists, listID, mv.seq)
	if err == nil {
		v.lists = applyListMove(v.lists, listID, index)
		f := v.fetch[notify.CollectionLists]
		f.applied = f.issued
	}
	v.mu.Unlock()

	v.invalidate(notify.CollectionLists, true)
	v.signal()
	if err != nil {
		v.logger.WithError(err).WithField("list_id", listID.String()).Warn("list move failed, reverted")
		return nil, err
	}
	return moved, nil
}

func (v *View) addPending(m map[uuid.UUID]pendingMove, id, parentID uuid.UUID, index int) issuedMove {
	v.mu.Lock()
	v.moveSeq++
	mv := issuedMove{
		seq:  v.moveSeq,
		prev: v.pending.chain[id],
		done: make(chan struct{}),
	}
	v.pending.chain[id] = mv.done
	m[id] = pendingMove{seq: mv.seq, parentID: parentID, index: index}
	v.mu.Unlock()
	v.signal()
	return mv
}

// awaitTurn blocks until the previously issued move of id has finished. If ctx ends first the
// move is abandoned, and its slot is released only once the earlier move is done.
func (v *View) awaitTurn(ctx context.Context, id uuid.UUID, mv issuedMove) error {
	if mv.prev == nil {
		return nil
	}
	select {
	case <-mv.prev:
		return nil
	case <-ctx.Done():
		go func() {
			<-mv.prev
			v.finishTurn(id, mv)
		}()
		return ctx.Err()
	}
}

func (v *View) finishTurn(id uuid.UUID, mv issuedMove) {
	v.mu.Lock()
	if v.pending.chain[id] == mv.done {
		delete(v.pending.chain, id)
	}
	v.mu.Unlock()
	close(mv.done)
}

// dropPendingLocked removes the entry unless a later move of the same entity replaced it.
func (v *View) dropPendingLocked(m map[uuid.UUID]pendingMove, id uuid.UUID, seq uint64) {
	if p, ok := m[id]; ok && p.seq == seq {
		delete(m, id)
	}
}

// Pending reports whether an optimistic move of the entity is awaiting confirmation.
func (v *View) Pending(id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, task := v.pending.tasks[id]
	_, list := v.pending.lists[id]
	return task || list
}

// Lists returns the board's lists in display order: confirmed state with pending moves applied.
func (v *View) Lists() []model.List {
	v.mu.Lock()
	defer v.mu.Unlock()
	lists := ordering.Sorted(v.lists)
	for _, p := range inIssueOrder(v.pending.lists) {
		lists = applyListMove(lists, p.id, p.index)
	}
	return lists
}

// Tasks returns all tasks of the board with pending moves applied, grouped by list.
func (v *View) Tasks() []model.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	tasks := make([]model.Task, len(v.tasks))
	copy(tasks, v.tasks)
	for _, p := range inIssueOrder(v.pending.tasks) {
		tasks = applyTaskMove(tasks, p.id, p.parentID, p.index)
	}
	return tasks
}

// TasksIn returns the tasks of one list in display order.
func (v *View) TasksIn(listID uuid.UUID) []model.Task {
	var out []model.Task
	for _, t := range v.Tasks() {
		if t.ListID == listID {
			out = append(out, t)
		}
	}
	ordering.Sort(out)
	return out
}

// Activity returns the most recent activity entries, newest first.
func (v *View) Activity() []model.ActivityEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]model.ActivityEntry, len(v.activity))
	copy(out, v.activity)
	return out
}

type orderedMove struct {
	id uuid.UUID
	pendingMove
}

// inIssueOrder returns the entries of m in the order the moves were issued.
func inIssueOrder(m map[uuid.UUID]pendingMove) []orderedMove {
	out := make([]orderedMove, 0, len(m))
	for id, p := range m {
		out = append(out, orderedMove{id: id, pendingMove: p})
	}
	slices.SortFunc(out, func(a, b orderedMove) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func applyTaskMove(tasks []model.Task, id, listID uuid.UUID, index int) []model.Task {
	i := ordering.IndexOf(tasks, id)
	if i < 0 {
		return tasks
	}
	moved := tasks[i]
	from := moved.ListID
	moved.ListID = listID

	var (
		out  = make([]model.Task, 0, len(tasks))
		dest []model.Task
		src  []model.Task
	)
	for _, t := range tasks {
		switch {
		case t.ID == id:
		case t.ListID == listID:
			dest = append(dest, t)
		case t.ListID == from:
			src = append(src, t)
		default:
			out = append(out, t)
		}
	}
	out = append(out, ordering.Insert(dest, moved, index)...)
	src = ordering.Sorted(src)
	for j := range src {
		src[j] = src[j].WithPosition(j)
	}
	return append(out, src...)
}

func applyListMove(lists []model.List, id uuid.UUID, index int) []model.List {
	i := ordering.IndexOf(lists, id)
	if i < 0 {
		return lists
	}
	return ordering.Insert(lists, lists[i], index)
}
