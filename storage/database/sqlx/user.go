package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/user"
)

type userRepository struct {
	base
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{base{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.CreatedAt = usr.CreatedAt.UTC()
	_, err := repo.execute(ctx,
		"INSERT INTO users (address, role, auth, created_at) VALUES (?, ?, ?, ?)",
		usr.Address, usr.Role, usr.Auth, usr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, address string) (user.User, error) {
	var usr user.User
	err := repo.get(ctx, &usr, "SELECT address, role, auth, created_at FROM users WHERE address = ?", address)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	usr.CreatedAt = usr.CreatedAt.UTC()
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.selectAll(ctx, &users, "SELECT address, role, auth, created_at FROM users ORDER BY address"); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	for i := range users {
		users[i].CreatedAt = users[i].CreatedAt.UTC()
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.execute(ctx, "UPDATE users SET role = ?, auth = ? WHERE address = ?", usr.Role, usr.Auth, usr.Address)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, usr.Address)
}

func (repo userRepository) IsBlocking(ctx context.Context, address string) (bool, error) {
	var n int
	if err := repo.get(ctx, &n, "SELECT COUNT(*) FROM blocking WHERE address = ?", address); err != nil {
		return false, errors.Wrap(err, "checking blocking")
	}
	return n > 0, nil
}

func (repo userRepository) SetBlocking(ctx context.Context, address string, blocking bool) error {
	var err error
	if blocking {
		_, err = repo.execute(ctx, "INSERT INTO blocking (address) VALUES (?) ON CONFLICT (address) DO NOTHING", address)
	} else {
		_, err = repo.execute(ctx, "DELETE FROM blocking WHERE address = ?", address)
	}
	return errors.Wrap(err, "saving blocking")
}

func (repo userRepository) CreateToken(ctx context.Context, tok user.Token) error {
	_, err := repo.execute(ctx,
		"INSERT INTO tokens (address, purpose, token, start_at, end_at) VALUES (?, ?, ?, ?, ?)",
		tok.Address, tok.Purpose, tok.Token, tok.StartAt.UTC(), tok.EndAt.UTC())
	return errors.Wrap(err, "inserting token")
}

func (repo userRepository) QueryTokens(ctx context.Context, address, purpose string) ([]user.Token, error) {
	var toks []user.Token
	err := repo.selectAll(ctx, &toks,
		"SELECT address, purpose, token, start_at, end_at FROM tokens WHERE address = ? AND purpose = ? ORDER BY start_at",
		address, purpose)
	if err != nil {
		return nil, errors.Wrap(err, "querying tokens")
	}
	for i := range toks {
		toks[i].StartAt = toks[i].StartAt.UTC()
		toks[i].EndAt = toks[i].EndAt.UTC()
	}
	return toks, nil
}

func (repo userRepository) DeleteTokens(ctx context.Context, address, purpose string) error {
	_, err := repo.execute(ctx, "DELETE FROM tokens WHERE address = ? AND purpose = ?", address, purpose)
	return errors.Wrap(err, "deleting tokens")
}

func (repo userRepository) CleanTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.execute(ctx, "DELETE FROM tokens WHERE end_at < ?", now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "cleaning tokens")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "cleaning tokens")
}

func (repo userRepository) QueryRequests(ctx context.Context, address string) ([]user.Request, error) {
	var (
		reqs = make([]user.Request, 0)
		err  error
	)
	if address == "" {
		err = repo.selectAll(ctx, &reqs, "SELECT address, type, value, status FROM requests ORDER BY address, type, value")
	} else {
		err = repo.selectAll(ctx, &reqs,
			"SELECT address, type, value, status FROM requests WHERE address = ? ORDER BY type, value", address)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	return reqs, nil
}

func (repo userRepository) GetRequest(ctx context.Context, address, typ, value string) (user.Request, error) {
	var req user.Request
	err := repo.get(ctx, &req,
		"SELECT address, type, value, status FROM requests WHERE address = ? AND type = ? AND value = ?",
		address, typ, value)
	if err != nil {
		return user.Request{}, trapNoRowsErr(err, user.ErrRequestNotFound, "getting request")
	}
	return req, nil
}

func (repo userRepository) SaveRequest(ctx context.Context, req user.Request) error {
	_, err := repo.execute(ctx, `
		INSERT INTO requests (address, type, value, status) VALUES (?, ?, ?, ?)
		ON CONFLICT (address, type, value) DO UPDATE SET status = excluded.status`,
		req.Address, req.Type, req.Value, req.Status)
	return errors.Wrap(err, "saving request")
}

func (repo userRepository) DeleteRequest(ctx context.Context, address, typ, value string) error {
	_, err := repo.execute(ctx, "DELETE FROM requests WHERE address = ? AND type = ? AND value = ?", address, typ, value)
	return errors.Wrap(err, "deleting request")
}
