package command

import (
	"context"
	"fmt"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/user"
)

// temporary token purposes accepted by :auth
var tokenPurposes = map[string]bool{
	user.PurposeRegister: true,
}

func runAuth(ctx context.Context, env *Env, args []format.Value) (string, error) {
	purpose, err := argString(args, 0, "purpose")
	if err != nil {
		return "", err
	}
	secret, err := argString(args, 1, "token")
	if err != nil {
		return "", err
	}

	switch {
	case env.isSelf(purpose):
		ok, err := env.Users.Authenticate(ctx, env.Sender, secret)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", core.Validationf("invalid user token for '%s'", env.Sender)
		}
		env.Auth.AddUser(env.Sender)
		return fmt.Sprintf("Authenticated as user '%s' for this message.", env.Sender), nil

	case tokenPurposes[purpose]:
		ok, err := env.Users.AuthenticateToken(ctx, env.Sender, purpose, secret, env.Now)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", core.Validationf("invalid or expired '%s' token", purpose)
		}
		env.Auth.AddToken(purpose)
		return fmt.Sprintf("Authenticated for '%s' for this message.", purpose), nil

	default:
		c, err := env.Courses.Resolve(ctx, env.Sender, purpose)
		if err != nil {
			return "", err
		}
		ok, err := env.Courses.Authenticate(ctx, c.ID, secret)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", core.Validationf("invalid course token for '%s'", c.Tag())
		}
		env.Auth.AddCourse(c.ID)
		return fmt.Sprintf("Authenticated for course '%s' for this message.", c.Tag()), nil
	}
}

func runRegister(ctx context.Context, env *Env, _ []format.Value) (string, error) {
	registered, err := env.Users.IsRegistered(ctx, env.Sender)
	if err != nil {
		return "", err
	}
	if registered {
		return "", core.Validationf("'%s' is already registered; to replace a lost user token, ask an admin", env.Sender)
	}

	if !env.Auth.HasToken(user.PurposeRegister) {
		secret, err := env.Users.IssueToken(ctx, env.Sender, user.PurposeRegister, env.Now)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`To confirm that '%s' is your address, reply with:

%s
%s

before the token expires.`, env.Sender, env.cmd("auth", user.PurposeRegister, secret), env.cmd("register")), nil
	}

	usr, secret, err := env.Users.Register(ctx, user.NewUser{Address: env.Sender}, env.Now)
	if err != nil {
		return "", err
	}
	if err = env.Users.ConsumeTokens(ctx, usr.Address, user.PurposeRegister); err != nil {
		return "", err
	}
	env.Auth.AddUser(usr.Address)
	return fmt.Sprintf(`Registered user '%s'. Your user token is:

  %s

Keep it secret. Commands that act on your behalf need:

%s`, usr.Address, secret, env.cmd("auth", "user", "<your user token>")), nil
}

func runBlock(ctx context.Context, env *Env, _ []format.Value) (string, error) {
	if err := env.Users.SetBlocking(ctx, env.Sender, true); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s' is now blocking: you will not receive any further replies.\nTo undo this, send: %s", env.Sender, env.cmd("unblock")), nil
}

func runUnblock(ctx context.Context, env *Env, _ []format.Value) (string, error) {
	if err := env.Users.SetBlocking(ctx, env.Sender, false); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s' is no longer blocking.", env.Sender), nil
}

func permission(args []format.Value, from int, address string) (user.NewPermission, error) {
	typ, err := argString(args, from, "permission type")
	if err != nil {
		return user.NewPermission{}, err
	}
	value, err := argString(args, from+1, "permission value")
	if err != nil {
		return user.NewPermission{}, err
	}
	return user.NewPermission{Address: address, Type: typ, Value: value}, nil
}

func runRequest(ctx context.Context, env *Env, args []format.Value) (string, error) {
	if err := env.requireUser(); err != nil {
		return "", err
	}
	np, err := permission(args, 0, env.Sender)
	if err != nil {
		return "", err
	}
	applied, err := env.Users.Request(ctx, np)
	if err != nil {
		return "", err
	}
	if applied {
		return fmt.Sprintf("Permission %s/%s had already been granted and is now applied.", np.Type, np.Value), nil
	}
	return fmt.Sprintf("Requested permission %s/%s. It will be applied once an admin grants it.", np.Type, np.Value), nil
}

func runGrant(ctx context.Context, env *Env, args []format.Value) (string, error) {
	if err := env.requireUser(); err != nil {
		return "", err
	}
	admin, err := env.Users.Get(ctx, env.Sender)
	if err != nil {
		return "", err
	}
	if !admin.IsAdmin() {
		return "", core.Validationf("only admins can grant permissions")
	}

	target, err := argString(args, 0, "user")
	if err != nil {
		return "", err
	}
	np, err := permission(args, 1, core.CleanString(target, true /* lower */))
	if err != nil {
		return "", err
	}
	applied, err := env.Users.Grant(ctx, np)
	if err != nil {
		return "", err
	}
	if applied {
		return fmt.Sprintf("Granted %s/%s to '%s'; it is now applied.", np.Type, np.Value, np.Address), nil
	}
	return fmt.Sprintf("Granted %s/%s to '%s'. It will be applied when they request it.", np.Type, np.Value, np.Address), nil
}

func runScramble(ctx context.Context, env *Env, args []format.Value) (string, error) {
	purpose, err := argString(args, 0, "purpose")
	if err != nil {
		return "", err
	}

	if env.isSelf(purpose) {
		if err = env.requireUser(); err != nil {
			return "", err
		}
		secret, err := env.Users.Scramble(ctx, env.Sender)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("New user token for '%s':\n\n  %s\n\nThe previous token no longer works.", env.Sender, secret), nil
	}

	c, err := env.Courses.Resolve(ctx, env.Sender, purpose)
	if err != nil {
		return "", err
	}
	if err = env.requireCourse(c); err != nil {
		return "", err
	}
	secret, err := env.Courses.Scramble(ctx, c.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("New course token for '%s':\n\n  %s\n\nThe previous token no longer works.", c.Tag(), secret), nil
}
