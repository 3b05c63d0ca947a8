package boardview

import (
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

// fetchState tracks refetches of one collection. Tickets are issued in increasing order and a
// result is applied only when its ticket is newer than the last applied one.
type fetchState struct {
	issued   uint64
	applied  uint64
	inFlight int
	dirty    bool
	stale    bool
}

// Refresh refetches every collection.
func (v *View) Refresh() {
	for _, c := range []notify.Collection{notify.CollectionLists, notify.CollectionTasks, notify.CollectionActivity} {
		v.invalidate(c, false)
	}
}

// Stale reports whether the collection has been invalidated since its last applied refetch.
func (v *View) Stale(c notify.Collection) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.fetch[c]
	return ok && f.stale
}

// retryStale refetches lists and tasks whose last refetch failed. Collections with a refetch in
// flight are left alone.
func (v *View) retryStale() {
	for _, c := range []notify.Collection{notify.CollectionLists, notify.CollectionTasks} {
		v.mu.Lock()
		f := v.fetch[c]
		retry := f.stale && f.inFlight == 0
		v.mu.Unlock()
		if retry {
			v.invalidate(c, false)
		}
	}
}

// invalidate marks c stale and refetches it. Unless force is set, an invalidation that arrives
// while a refetch of c is running only schedules one follow-up refetch.
func (v *View) invalidate(c notify.Collection, force bool) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	f := v.fetch[c]
	f.stale = true
	if f.inFlight > 0 && !force {
		f.dirty = true
		v.mu.Unlock()
		return
	}
	ticket := v.issueLocked(f)
	v.mu.Unlock()
	v.startFetch(c, ticket)
}

func (v *View) issueLocked(f *fetchState) uint64 {
	f.issued++
	f.inFlight++
	v.fetches.Add(1)
	return f.issued
}

func (v *View) startFetch(c notify.Collection, ticket uint64) {
	v.mu.Lock()
	ctx := v.ctx
	v.mu.Unlock()

	go func() {
		defer v.fetches.Done()

		var (
			lists    []model.List
			tasks    []model.Task
			activity []model.ActivityEntry
			err      error
		)
		switch c {
		case notify.CollectionLists:
			lists, err = v.backend.Lists(ctx, v.boardID)
		case notify.CollectionTasks:
			tasks, err = v.backend.Tasks(ctx, v.boardID)
		case notify.CollectionActivity:
			activity, err = v.backend.Activity(ctx, v.boardID, v.opts.ActivityLimit)
		}

		v.mu.Lock()
		f := v.fetch[c]
		f.inFlight--
		applied := false
		switch {
		case err != nil:
			if ctx.Err() == nil {
				v.logger.WithError(err).WithField("collection", c).Warn("board refetch failed")
			}
		case ticket > f.applied:
			f.applied = ticket
			applied = true
			switch c {
			case notify.CollectionLists:
				v.lists = lists
			case notify.CollectionTasks:
				v.tasks = tasks
			case notify.CollectionActivity:
				v.activity = activity
			}
			if ticket == f.issued && !f.dirty {
				f.stale = false
			}
		}
		var follow uint64
		if f.inFlight == 0 && f.dirty && !v.closed {
			f.dirty = false
			follow = v.issueLocked(f)
		}
		v.mu.Unlock()

		if applied {
			v.signal()
		}
		if follow != 0 {
			v.startFetch(c, follow)
		}
	}()
}
