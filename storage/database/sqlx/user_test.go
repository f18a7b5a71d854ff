package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/storage/database/sqlx"
	"github.com/trezcool/academibot/tests"
)

var t0 = time.Date(2021, time.January, 1, 12, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))

	usr, err := repo.CreateUser(ctx, user.User{Address: "a@b.c", Role: user.RoleDefault, Auth: "secret", CreatedAt: t0})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err = repo.CreateUser(ctx, usr); err != user.ErrUserExists {
		t.Errorf("CreateUser() duplicate error = %v, want %v", err, user.ErrUserExists)
	}

	got, err := repo.GetUser(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Address != usr.Address || got.Auth != "secret" || !got.CreatedAt.Equal(t0) {
		t.Errorf("GetUser() = %+v, want %+v", got, usr)
	}
	if _, err = repo.GetUser(ctx, "nobody"); err != user.ErrNotFound {
		t.Errorf("GetUser(nobody) error = %v, want %v", err, user.ErrNotFound)
	}

	usr.Role = user.RoleAdmin
	usr.Auth = "other"
	if got, err = repo.UpdateUser(ctx, usr); err != nil || got.Role != user.RoleAdmin || got.Auth != "other" {
		t.Errorf("UpdateUser() = %+v, %v", got, err)
	}
	if _, err = repo.UpdateUser(ctx, user.User{Address: "nobody"}); err != user.ErrNotFound {
		t.Errorf("UpdateUser(nobody) error = %v, want %v", err, user.ErrNotFound)
	}

	if _, err = repo.CreateUser(ctx, user.User{Address: "0@b.c", Role: user.RoleDefault, Auth: "x", CreatedAt: t0}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	users, err := repo.QueryUsers(ctx)
	if err != nil || len(users) != 2 || users[0].Address != "0@b.c" {
		t.Errorf("QueryUsers() = %+v, %v", users, err)
	}
}

func TestUserRepositoryBlocking(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))

	steps := []struct {
		blocking bool
	}{{true}, {true}, {false}, {false}}
	for _, step := range steps {
		if err := repo.SetBlocking(ctx, "a@b.c", step.blocking); err != nil {
			t.Fatalf("SetBlocking(%v) error = %v", step.blocking, err)
		}
		if got, err := repo.IsBlocking(ctx, "a@b.c"); err != nil || got != step.blocking {
			t.Errorf("IsBlocking() = %v, %v; want %v", got, err, step.blocking)
		}
	}
}

func TestUserRepositoryTokens(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))

	toks := []user.Token{
		{Address: "a", Purpose: "register", Token: "1", StartAt: t0, EndAt: t0.Add(time.Minute)},
		{Address: "a", Purpose: "register", Token: "2", StartAt: t0.Add(time.Minute), EndAt: t0.Add(time.Hour)},
		{Address: "a", Purpose: "other", Token: "3", StartAt: t0, EndAt: t0.Add(time.Hour)},
		{Address: "b", Purpose: "register", Token: "4", StartAt: t0, EndAt: t0.Add(time.Minute)},
	}
	for _, tok := range toks {
		if err := repo.CreateToken(ctx, tok); err != nil {
			t.Fatalf("CreateToken() error = %v", err)
		}
	}

	got, err := repo.QueryTokens(ctx, "a", "register")
	if err != nil || len(got) != 2 || got[0].Token != "1" || !got[1].EndAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("QueryTokens() = %+v, %v", got, err)
	}

	// the end is inclusive
	n, err := repo.CleanTokens(ctx, t0.Add(time.Minute))
	if err != nil || n != 0 {
		t.Errorf("CleanTokens(end) = %d, %v; want 0", n, err)
	}
	if n, err = repo.CleanTokens(ctx, t0.Add(2*time.Minute)); err != nil || n != 2 {
		t.Errorf("CleanTokens() = %d, %v; want 2", n, err)
	}

	if err = repo.DeleteTokens(ctx, "a", "other"); err != nil {
		t.Fatalf("DeleteTokens() error = %v", err)
	}
	if got, _ = repo.QueryTokens(ctx, "a", "other"); len(got) != 0 {
		t.Errorf("DeleteTokens() left %+v", got)
	}
	if got, _ = repo.QueryTokens(ctx, "a", "register"); len(got) != 1 || got[0].Token != "2" {
		t.Errorf("QueryTokens() after cleanup = %+v", got)
	}
}

func TestUserRepositoryRequests(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))

	req := user.Request{Address: "a", Type: user.PermissionRole, Value: "admin", Status: user.RequestRequested}
	if _, err := repo.GetRequest(ctx, "a", user.PermissionRole, "admin"); err != user.ErrRequestNotFound {
		t.Errorf("GetRequest() error = %v, want %v", err, user.ErrRequestNotFound)
	}
	if err := repo.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest() error = %v", err)
	}
	req.Status = user.RequestGranted
	if err := repo.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest() replace error = %v", err)
	}
	if err := repo.SaveRequest(ctx, user.Request{Address: "b", Type: user.PermissionRole, Value: "admin", Status: user.RequestRequested}); err != nil {
		t.Fatalf("SaveRequest() error = %v", err)
	}

	got, err := repo.GetRequest(ctx, "a", user.PermissionRole, "admin")
	if err != nil || got != req {
		t.Errorf("GetRequest() = %+v, %v; want %+v", got, err, req)
	}
	if all, err := repo.QueryRequests(ctx, ""); err != nil || len(all) != 2 {
		t.Errorf("QueryRequests(all) = %+v, %v", all, err)
	}
	if mine, err := repo.QueryRequests(ctx, "a"); err != nil || len(mine) != 1 {
		t.Errorf("QueryRequests(a) = %+v, %v", mine, err)
	}

	if err = repo.DeleteRequest(ctx, "a", user.PermissionRole, "admin"); err != nil {
		t.Fatalf("DeleteRequest() error = %v", err)
	}
	if _, err = repo.GetRequest(ctx, "a", user.PermissionRole, "admin"); err != user.ErrRequestNotFound {
		t.Errorf("GetRequest() after delete error = %v", err)
	}
}

func TestUserServiceOverSQL(t *testing.T) {
	ctx := context.Background()
	svc := user.NewService(sqlxrepos.NewUserRepository(testutil.PrepareDB(t)), core.PlainChecker{}, testutil.TokenTTL)

	secret := testutil.CreateUser(t, svc, "a@b.c", user.RoleDefault)
	if ok, err := svc.Authenticate(ctx, "a@b.c", secret); err != nil || !ok {
		t.Errorf("Authenticate() = %v, %v", ok, err)
	}

	tok, err := svc.IssueToken(ctx, "new@b.c", user.PurposeRegister, t0)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if ok, err := svc.AuthenticateToken(ctx, "new@b.c", user.PurposeRegister, tok, t0.Add(time.Minute)); err != nil || !ok {
		t.Errorf("AuthenticateToken() = %v, %v", ok, err)
	}
	if ok, _ := svc.AuthenticateToken(ctx, "new@b.c", user.PurposeRegister, tok, t0.Add(testutil.TokenTTL+time.Second)); ok {
		t.Error("AuthenticateToken() accepted an expired token")
	}
}
