package store

import "context"

// DefaultLevel is assigned to users created implicitly by their first message.
const DefaultLevel = "A1"

type User struct {
	// ID is the opaque client identifier.
	ID    string
	Level string
	// Streak is the number of consecutive active days.
	Streak int32
	// LastActiveDate is a calendar date in "2006-01-02" form, empty if never active.
	LastActiveDate string
	CreatedTs      int64
}

type FindUser struct {
	ID *string
}

type UpdateUser struct {
	ID    string
	Level *string
}

type SwapUserStreak struct {
	ID     string
	Streak int32
	// LastActiveDate is the new value.
	LastActiveDate string
	// ExpectedLastActiveDate must match the stored value for the swap to apply.
	ExpectedLastActiveDate string
}

func (s *Store) EnsureUser(ctx context.Context, create *User) (*User, error) {
	if create.Level == "" {
		create.Level = DefaultLevel
	}
	return s.driver.EnsureUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns nil without error when no user matches.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) SwapUserStreak(ctx context.Context, swap *SwapUserStreak) (bool, error) {
	return s.driver.SwapUserStreak(ctx, swap)
}
