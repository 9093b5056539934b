package repository

import (
	"context" // Request-scoped deadlines
	"sort"    // Deterministic ordering
	"sync"    // Mutexes
	"time"    // Timestamps and durations

	"scorekeeper/internal/domain" // Domain models and errors
)

type memState struct {
	users       map[uint]domain.User
	teams       map[uint]domain.Team
	matches     map[uint]domain.Match
	predictions map[uint]domain.Prediction
	nextID      uint
}

func (st *memState) clone() *memState {
	c := &memState{
		users:       make(map[uint]domain.User, len(st.users)),
		teams:       make(map[uint]domain.Team, len(st.teams)),
		matches:     make(map[uint]domain.Match, len(st.matches)),
		predictions: make(map[uint]domain.Prediction, len(st.predictions)),
		nextID:      st.nextID,
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.teams {
		c.teams[k] = v
	}
	for k, v := range st.matches {
		c.matches[k] = v
	}
	for k, v := range st.predictions {
		c.predictions[k] = v
	}
	return c
}

func (st *memState) id() uint {
	st.nextID++
	return st.nextID
}

// MemoryStore is an in-process Store. Atomic runs against a copy of the data
// and publishes it only when the unit of work succeeds.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool
}

// NewMemoryStore returns an empty in-memory Store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		state: &memState{
			users:       map[uint]domain.User{},
			teams:       map[uint]domain.Team{},
			matches:     map[uint]domain.Match{},
			predictions: map[uint]domain.Prediction{},
		},
	}
}

func (s *MemoryStore) Users() UserRepository             { return memUsers{s} }
func (s *MemoryStore) Teams() TeamRepository             { return memTeams{s} }
func (s *MemoryStore) Matches() MatchRepository          { return memMatches{s} }
func (s *MemoryStore) Predictions() PredictionRepository { return memPredictions{s} }

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &MemoryStore{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.state = *tx.state
	return nil
}

// do runs fn under the store lock unless already inside Atomic
func (s *MemoryStore) do(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(ctx context.Context, user *domain.User) error {
	return r.s.do(ctx, func(st *memState) error {
		for _, u := range st.users {
			if u.Email == user.Email {
				return domain.ErrUserExists
			}
		}
		now := time.Now()
		user.ID = st.id()
		if user.Role == "" {
			user.Role = domain.RoleUser
		}
		user.CreatedAt, user.UpdatedAt = now, now
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(ctx, func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) find(ctx context.Context, match func(u domain.User) bool) (*domain.User, error) {
	var out *domain.User
	err := r.s.do(ctx, func(st *memState) error {
		for _, u := range st.users {
			if match(u) {
				out = &u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r memUsers) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ResetTokenHash != nil && *u.ResetTokenHash == hash })
}

func (r memUsers) ListByIDs(ctx context.Context, ids []uint) ([]domain.User, error) {
	var out []domain.User
	err := r.s.do(ctx, func(st *memState) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, err
}

func (r memUsers) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var out []domain.User
	var total int64
	err := r.s.do(ctx, func(st *memState) error {
		all := make([]domain.User, 0, len(st.users))
		for _, u := range st.users {
			all = append(all, u)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		total = int64(len(all))
		if offset >= len(all) {
			return nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		out = all[offset:end]
		return nil
	})
	return out, total, err
}

func (r memUsers) update(ctx context.Context, id uint, fn func(u *domain.User)) error {
	return r.s.do(ctx, func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		fn(&u)
		u.UpdatedAt = time.Now()
		st.users[id] = u
		return nil
	})
}

func (r memUsers) SetRole(ctx context.Context, id uint, role string) error {
	return r.update(ctx, id, func(u *domain.User) { u.Role = role })
}

func (r memUsers) SetResetToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error {
	return r.update(ctx, id, func(u *domain.User) {
		u.ResetTokenHash = &hash
		u.ResetExpiresAt = &expiresAt
	})
}

func (r memUsers) ResetPassword(ctx context.Context, id uint, tokenHash, passwordHash string) error {
	return r.s.do(ctx, func(st *memState) error {
		u, ok := st.users[id]
		if !ok || u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
			return domain.ErrInvalidOrExpiredToken
		}
		u.Password = passwordHash
		u.TokenGeneration++
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
		u.UpdatedAt = time.Now()
		st.users[id] = u
		return nil
	})
}

func (r memUsers) BumpTokenGeneration(ctx context.Context, id uint) error {
	return r.update(ctx, id, func(u *domain.User) { u.TokenGeneration++ })
}

func (r memUsers) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *memState) error {
		for id, u := range st.users {
			if u.ResetExpiresAt != nil && u.ResetExpiresAt.Before(now) {
				u.ResetTokenHash = nil
				u.ResetExpiresAt = nil
				st.users[id] = u
				n++
			}
		}
		return nil
	})
	return n, err
}

type memTeams struct{ s *MemoryStore }

func (r memTeams) Create(ctx context.Context, team *domain.Team) error {
	return r.s.do(ctx, func(st *memState) error {
		for _, t := range st.teams {
			if t.Slug == team.Slug {
				return domain.ErrTeamExists
			}
		}
		now := time.Now()
		team.ID = st.id()
		team.CreatedAt, team.UpdatedAt = now, now
		st.teams[team.ID] = *team
		return nil
	})
}

func (r memTeams) Update(ctx context.Context, team *domain.Team) error {
	return r.s.do(ctx, func(st *memState) error {
		cur, ok := st.teams[team.ID]
		if !ok {
			return domain.ErrTeamNotFound
		}
		for _, t := range st.teams {
			if t.ID != team.ID && t.Slug == team.Slug {
				return domain.ErrTeamExists
			}
		}
		team.CreatedAt = cur.CreatedAt
		team.UpdatedAt = time.Now()
		st.teams[team.ID] = *team
		return nil
	})
}

func (r memTeams) Delete(ctx context.Context, id uint) error {
	return r.s.do(ctx, func(st *memState) error {
		if _, ok := st.teams[id]; !ok {
			return domain.ErrTeamNotFound
		}
		delete(st.teams, id)
		return nil
	})
}

func (r memTeams) GetByID(ctx context.Context, id uint) (*domain.Team, error) {
	var out *domain.Team
	err := r.s.do(ctx, func(st *memState) error {
		t, ok := st.teams[id]
		if !ok {
			return domain.ErrTeamNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r memTeams) ListByIDs(ctx context.Context, ids []uint) ([]domain.Team, error) {
	var out []domain.Team
	err := r.s.do(ctx, func(st *memState) error {
		for _, id := range ids {
			if t, ok := st.teams[id]; ok {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

// ListForShare and GetForUpdate need no row locks here: Atomic already
// serializes transactions
func (r memTeams) ListForShare(ctx context.Context, ids []uint) ([]domain.Team, error) {
	return r.ListByIDs(ctx, ids)
}

func (r memTeams) GetForUpdate(ctx context.Context, id uint) (*domain.Team, error) {
	return r.GetByID(ctx, id)
}

func (r memTeams) List(ctx context.Context) ([]domain.Team, error) {
	var out []domain.Team
	err := r.s.do(ctx, func(st *memState) error {
		for _, t := range st.teams {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

type memMatches struct{ s *MemoryStore }

func (r memMatches) Create(ctx context.Context, match *domain.Match) error {
	return r.s.do(ctx, func(st *memState) error {
		now := time.Now()
		match.ID = st.id()
		match.CreatedAt, match.UpdatedAt = now, now
		st.matches[match.ID] = *match
		return nil
	})
}

func (r memMatches) GetByID(ctx context.Context, id uint) (*domain.Match, error) {
	var out *domain.Match
	err := r.s.do(ctx, func(st *memState) error {
		m, ok := st.matches[id]
		if !ok {
			return domain.ErrMatchNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

// Row locks are implied: Atomic already serializes every unit of work.
func (r memMatches) GetForShare(ctx context.Context, id uint) (*domain.Match, error) {
	return r.GetByID(ctx, id)
}

func (r memMatches) GetForUpdate(ctx context.Context, id uint) (*domain.Match, error) {
	return r.GetByID(ctx, id)
}

func (r memMatches) List(ctx context.Context) ([]domain.Match, error) {
	var out []domain.Match
	err := r.s.do(ctx, func(st *memState) error {
		for _, m := range st.matches {
			out = append(out, m)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].StartsAt.Equal(out[j].StartsAt) {
				return out[i].StartsAt.After(out[j].StartsAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (r memMatches) ListDecided(ctx context.Context) ([]domain.Match, error) {
	var out []domain.Match
	err := r.s.do(ctx, func(st *memState) error {
		for _, m := range st.matches {
			if m.Decided() {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r memMatches) SetWinner(ctx context.Context, id, winnerID uint) error {
	return r.s.do(ctx, func(st *memState) error {
		m, ok := st.matches[id]
		if !ok {
			return domain.ErrMatchNotFound
		}
		w := winnerID
		m.DeclaredWinnerID = &w
		m.UpdatedAt = time.Now()
		st.matches[id] = m
		return nil
	})
}

func (r memMatches) Delete(ctx context.Context, id uint) error {
	return r.s.do(ctx, func(st *memState) error {
		if _, ok := st.matches[id]; !ok {
			return domain.ErrMatchNotFound
		}
		delete(st.matches, id)
		return nil
	})
}

func (r memMatches) CountByTeam(ctx context.Context, teamID uint) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *memState) error {
		for _, m := range st.matches {
			if m.TeamOneID == teamID || m.TeamTwoID == teamID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type memPredictions struct{ s *MemoryStore }

func (r memPredictions) Upsert(ctx context.Context, p *domain.Prediction) (bool, error) {
	created := false
	err := r.s.do(ctx, func(st *memState) error {
		now := time.Now()
		for id, cur := range st.predictions {
			if cur.UserID == p.UserID && cur.MatchID == p.MatchID {
				cur.TeamID = p.TeamID
				cur.UpdatedAt = now
				st.predictions[id] = cur
				*p = cur
				return nil
			}
		}
		p.ID = st.id()
		p.Score = domain.ScorePending
		p.CreatedAt, p.UpdatedAt = now, now
		st.predictions[p.ID] = *p
		created = true
		return nil
	})
	return created, err
}

func (r memPredictions) Get(ctx context.Context, userID, matchID uint) (*domain.Prediction, error) {
	var out *domain.Prediction
	err := r.s.do(ctx, func(st *memState) error {
		for _, p := range st.predictions {
			if p.UserID == userID && p.MatchID == matchID {
				out = &p
				return nil
			}
		}
		return domain.ErrPredictionNotFound
	})
	return out, err
}

func (r memPredictions) list(ctx context.Context, keep func(p domain.Prediction) bool) ([]domain.Prediction, error) {
	var out []domain.Prediction
	err := r.s.do(ctx, func(st *memState) error {
		for _, p := range st.predictions {
			if keep(p) {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r memPredictions) ListByMatch(ctx context.Context, matchID uint) ([]domain.Prediction, error) {
	return r.list(ctx, func(p domain.Prediction) bool { return p.MatchID == matchID })
}

func (r memPredictions) ListByUser(ctx context.Context, userID uint) ([]domain.Prediction, error) {
	return r.list(ctx, func(p domain.Prediction) bool { return p.UserID == userID })
}

func (r memPredictions) UpdateScores(ctx context.Context, scores map[uint]int) error {
	return r.s.do(ctx, func(st *memState) error {
		now := time.Now()
		for id, score := range scores {
			p, ok := st.predictions[id]
			if !ok {
				return domain.ErrPredictionNotFound
			}
			p.Score = score
			p.UpdatedAt = now
			st.predictions[id] = p
		}
		return nil
	})
}

func (r memPredictions) DeleteByMatch(ctx context.Context, matchID uint) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *memState) error {
		for id, p := range st.predictions {
			if p.MatchID == matchID {
				delete(st.predictions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memPredictions) TotalsByUser(ctx context.Context) ([]domain.UserTotal, error) {
	all, err := r.list(ctx, func(domain.Prediction) bool { return true })
	if err != nil {
		return nil, err
	}
	idx := make(map[uint]int)
	var totals []domain.UserTotal
	for _, p := range all {
		i, ok := idx[p.UserID]
		if !ok {
			i = len(totals)
			idx[p.UserID] = i
			totals = append(totals, domain.UserTotal{UserID: p.UserID, FirstArrival: p.ID})
		}
		totals[i].TotalScore += p.Score
	}
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].TotalScore > totals[j].TotalScore })
	return totals, nil
}
