package domain

import (
	"math/rand/v2"
	"sync"
)

// Registry は生存中のセッションの集合です。
// I/O goroutine からの Add と tick goroutine の Sweep はすべて mu の下で直列化されます。
type Registry struct {
	mu       sync.Mutex
	sessions []*Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions は現在のメンバーのスナップショットを返します。
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func (r *Registry) Contains(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.sessions {
		if x == s {
			return true
		}
	}
	return false
}

// Shuffle は並び順だけをランダムに入れ替えます。メンバーは変わりません。
func (r *Registry) Shuffle() {
	r.mu.Lock()
	rand.Shuffle(len(r.sessions), func(i, j int) {
		r.sessions[i], r.sessions[j] = r.sessions[j], r.sessions[i]
	})
	r.mu.Unlock()
}

// Sweep は開始時点のメンバーを順に fn へ渡し、remove=true を返したものを取り除きます。
// fn はロックの外で呼ばれるので、Sweep 中の Add は次の Sweep から対象になります。
// fn がエラーを返すとそこで打ち切り、それまでに決まった削除だけを反映してエラーを返します。
func (r *Registry) Sweep(fn func(s *Session) (remove bool, err error)) error {
	snapshot := r.Sessions()

	var (
		removed  map[*Session]struct{}
		sweepErr error
	)
	for _, s := range snapshot {
		remove, err := fn(s)
		if remove {
			if removed == nil {
				removed = make(map[*Session]struct{})
			}
			removed[s] = struct{}{}
		}
		if err != nil {
			sweepErr = err
			break
		}
	}

	if len(removed) > 0 {
		r.mu.Lock()
		kept := r.sessions[:0]
		for _, s := range r.sessions {
			if _, ok := removed[s]; !ok {
				kept = append(kept, s)
			}
		}
		clear(r.sessions[len(kept):])
		r.sessions = kept
		r.mu.Unlock()
	}
	return sweepErr
}
