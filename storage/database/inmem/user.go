package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academibot/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, exists := repo.db.table[usr.Address]; exists {
		return user.User{}, user.ErrUserExists
	}
	repo.db.table[usr.Address] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, address string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[address]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Address < users[j].Address })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save updatable fields
	origUsr, ok := repo.db.table[usr.Address]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.Role = usr.Role
	origUsr.Auth = usr.Auth
	return *origUsr, nil
}

func (repo *userRepository) IsBlocking(_ context.Context, address string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.blocking[address], nil
}

func (repo *userRepository) SetBlocking(_ context.Context, address string, blocking bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if blocking {
		repo.db.blocking[address] = true
	} else {
		delete(repo.db.blocking, address)
	}
	return nil
}

func (repo *userRepository) CreateToken(_ context.Context, tok user.Token) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.tokens = append(repo.db.tokens, tok)
	return nil
}

func (repo *userRepository) QueryTokens(_ context.Context, address, purpose string) ([]user.Token, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var toks []user.Token
	for _, tok := range repo.db.tokens {
		if tok.Address == address && tok.Purpose == purpose {
			toks = append(toks, tok)
		}
	}
	return toks, nil
}

func (repo *userRepository) deleteTokens(keep func(tok user.Token) bool) int64 {
	kept := repo.db.tokens[:0]
	for _, tok := range repo.db.tokens {
		if keep(tok) {
			kept = append(kept, tok)
		}
	}
	removed := int64(len(repo.db.tokens) - len(kept))
	repo.db.tokens = kept
	return removed
}

func (repo *userRepository) DeleteTokens(_ context.Context, address, purpose string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.deleteTokens(func(tok user.Token) bool { return tok.Address != address || tok.Purpose != purpose })
	return nil
}

func (repo *userRepository) CleanTokens(_ context.Context, now time.Time) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.deleteTokens(func(tok user.Token) bool { return !tok.EndAt.Before(now) }), nil
}

func (repo *userRepository) QueryRequests(_ context.Context, address string) ([]user.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]user.Request, 0, len(repo.db.requests))
	for _, req := range repo.db.requests {
		if address == "" || req.Address == address {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func (repo *userRepository) GetRequest(_ context.Context, address, typ, value string) (user.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, req := range repo.db.requests {
		if req.Address == address && req.Type == typ && req.Value == value {
			return req, nil
		}
	}
	return user.Request{}, user.ErrRequestNotFound
}

func (repo *userRepository) deleteRequest(address, typ, value string) {
	kept := repo.db.requests[:0]
	for _, req := range repo.db.requests {
		if req.Address != address || req.Type != typ || req.Value != value {
			kept = append(kept, req)
		}
	}
	repo.db.requests = kept
}

func (repo *userRepository) SaveRequest(_ context.Context, req user.Request) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.deleteRequest(req.Address, req.Type, req.Value)
	repo.db.requests = append(repo.db.requests, req)
	return nil
}

func (repo *userRepository) DeleteRequest(_ context.Context, address, typ, value string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.deleteRequest(address, typ, value)
	return nil
}
