package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academibot/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrUserExists      = errors.New("a user with this address already exists")
	ErrRequestNotFound = errors.New("permission request not found")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, address string) (User, error)
		QueryUsers(ctx context.Context) ([]User, error)
		// UpdateUser saves the role and the auth secret of an existing user.
		UpdateUser(ctx context.Context, usr User) (User, error)

		IsBlocking(ctx context.Context, address string) (bool, error)
		SetBlocking(ctx context.Context, address string, blocking bool) error

		CreateToken(ctx context.Context, tok Token) error
		QueryTokens(ctx context.Context, address, purpose string) ([]Token, error)
		DeleteTokens(ctx context.Context, address, purpose string) error
		// CleanTokens deletes the tokens that ended before `now` and returns how many were removed.
		CleanTokens(ctx context.Context, now time.Time) (int64, error)

		// QueryRequests lists the requests of `address`, or every request when it is empty.
		QueryRequests(ctx context.Context, address string) ([]Request, error)
		GetRequest(ctx context.Context, address, typ, value string) (Request, error)
		// SaveRequest replaces any request with the same address, type and value.
		SaveRequest(ctx context.Context, req Request) error
		DeleteRequest(ctx context.Context, address, typ, value string) error
	}

	Service struct {
		repo     Repository
		checker  core.Checker
		tokenTTL time.Duration
	}
)

func NewService(repo Repository, checker core.Checker, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, checker: checker, tokenTTL: tokenTTL}
}

// Register creates a user with a fresh auth secret and returns that secret in clear.
func (svc *Service) Register(ctx context.Context, nu NewUser, now time.Time) (User, string, error) {
	if err := nu.Validate(); err != nil {
		return User{}, "", err
	}
	secret := core.NewSecret()
	hashed, err := svc.checker.Hash(secret)
	if err != nil {
		return User{}, "", err
	}
	usr, err := svc.repo.CreateUser(ctx, User{
		Address:   nu.Address,
		Role:      nu.Role,
		Auth:      hashed,
		CreatedAt: now.UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrUserExists {
			return User{}, "", core.NewValidationError(err, core.FieldError{Field: "address", Error: err.Error()})
		}
		return User{}, "", err
	}
	return usr, secret, nil
}

func (svc *Service) Get(ctx context.Context, address string) (User, error) {
	return svc.repo.GetUser(ctx, core.CleanString(address, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx)
}

func (svc *Service) IsRegistered(ctx context.Context, address string) (bool, error) {
	if _, err := svc.Get(ctx, address); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Status returns one of StatusBlocking, StatusNotRegistered or StatusActive.
func (svc *Service) Status(ctx context.Context, address string) (string, error) {
	blocking, err := svc.IsBlocking(ctx, address)
	if err != nil {
		return "", err
	}
	if blocking {
		return StatusBlocking, nil
	}
	registered, err := svc.IsRegistered(ctx, address)
	if err != nil {
		return "", err
	}
	if !registered {
		return StatusNotRegistered, nil
	}
	return StatusActive, nil
}

// Authenticate checks `secret` against the user's auth secret. Unknown users never authenticate.
func (svc *Service) Authenticate(ctx context.Context, address, secret string) (bool, error) {
	usr, err := svc.Get(ctx, address)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return svc.checker.Check(usr.Auth, secret), nil
}

// IssueToken replaces the `purpose` tokens of `address` with a new one, valid from now on.
func (svc *Service) IssueToken(ctx context.Context, address, purpose string, now time.Time) (string, error) {
	address = core.CleanString(address, true /* lower */)
	if err := svc.repo.DeleteTokens(ctx, address, purpose); err != nil {
		return "", err
	}
	secret := core.NewSecret()
	hashed, err := svc.checker.Hash(secret)
	if err != nil {
		return "", err
	}
	tok := Token{
		Address: address,
		Purpose: purpose,
		Token:   hashed,
		StartAt: now.UTC(),
		EndAt:   now.UTC().Add(svc.tokenTTL),
	}
	if err = svc.repo.CreateToken(ctx, tok); err != nil {
		return "", err
	}
	return secret, nil
}

func (svc *Service) AuthenticateToken(ctx context.Context, address, purpose, secret string, now time.Time) (bool, error) {
	toks, err := svc.repo.QueryTokens(ctx, core.CleanString(address, true /* lower */), purpose)
	if err != nil {
		return false, err
	}
	for _, tok := range toks {
		if tok.ActiveAt(now) && svc.checker.Check(tok.Token, secret) {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) ConsumeTokens(ctx context.Context, address, purpose string) error {
	return svc.repo.DeleteTokens(ctx, core.CleanString(address, true /* lower */), purpose)
}

func (svc *Service) CleanTokens(ctx context.Context, now time.Time) (int64, error) {
	return svc.repo.CleanTokens(ctx, now.UTC())
}

// Scramble gives the user a new auth secret and returns it in clear.
func (svc *Service) Scramble(ctx context.Context, address string) (string, error) {
	secret := core.NewSecret()
	if err := svc.SetSecret(ctx, address, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// SetSecret replaces the auth secret of an existing user.
func (svc *Service) SetSecret(ctx context.Context, address, secret string) error {
	usr, err := svc.Get(ctx, address)
	if err != nil {
		return err
	}
	if usr.Auth, err = svc.checker.Hash(secret); err != nil {
		return err
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) SetRole(ctx context.Context, address string, role Role) (User, error) {
	usr, err := svc.Get(ctx, address)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) IsBlocking(ctx context.Context, address string) (bool, error) {
	return svc.repo.IsBlocking(ctx, core.CleanString(address, true /* lower */))
}

func (svc *Service) SetBlocking(ctx context.Context, address string, blocking bool) error {
	return svc.repo.SetBlocking(ctx, core.CleanString(address, true /* lower */), blocking)
}

func (svc *Service) OutstandingRequests(ctx context.Context, address string) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, core.CleanString(address, true /* lower */))
}

// Request records that the user asks for a permission.
// It reports true when an admin granted it beforehand and the permission was applied.
func (svc *Service) Request(ctx context.Context, np NewPermission) (bool, error) {
	return svc.pair(ctx, np, RequestRequested)
}

// Grant records an admin's approval for a permission.
// It reports true when the user already asked for it and the permission was applied.
func (svc *Service) Grant(ctx context.Context, np NewPermission) (bool, error) {
	return svc.pair(ctx, np, RequestGranted)
}

// pair saves one side of a permission request, or applies the permission when the other side exists.
func (svc *Service) pair(ctx context.Context, np NewPermission, side RequestStatus) (bool, error) {
	if err := np.Validate(); err != nil {
		return false, err
	}
	existing, err := svc.repo.GetRequest(ctx, np.Address, np.Type, np.Value)
	switch {
	case errors.Cause(err) == ErrRequestNotFound:
	case err != nil:
		return false, err
	case existing.Status == side && side == RequestRequested:
		return false, core.Validationf("previous request for %s/%s by user '%s' is still outstanding", np.Type, np.Value, np.Address)
	case existing.Status == side:
		return false, core.Validationf("previous permission %s/%s for user '%s' has not been used", np.Type, np.Value, np.Address)
	default:
		if err = svc.apply(ctx, np); err != nil {
			return false, err
		}
		return true, svc.repo.DeleteRequest(ctx, np.Address, np.Type, np.Value)
	}

	req := Request{Address: np.Address, Type: np.Type, Value: np.Value, Status: side}
	return false, svc.repo.SaveRequest(ctx, req)
}

func (svc *Service) apply(ctx context.Context, np NewPermission) error {
	switch np.Type {
	case PermissionRole:
		role, _ := ParseRole(np.Value)
		if _, err := svc.SetRole(ctx, np.Address, role); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return core.NewNotFoundError("user", np.Address)
			}
			return err
		}
		return nil
	default:
		return core.Validationf("unknown permission type '%s'", np.Type)
	}
}
