package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/academibot/core/user"
)

var nowFunc = time.Now // mockable

// addUser registers a user. A non-empty `token` replaces the generated one.
func (cli *commandLine) addUser(address string, role user.Role, token string) error {
	ctx := context.Background()
	usr, secret, err := cli.users.Register(ctx, user.NewUser{Address: address, Role: role}, nowFunc())
	if err != nil {
		return err
	}
	if token != "" {
		if err = cli.users.SetSecret(ctx, usr.Address, token); err != nil {
			return err
		}
		secret = token
	}
	fmt.Fprintf(cli.out, "registered %s (%s)\ntoken: %s\n", usr.Address, usr.Role, secret)
	return nil
}

func (cli *commandLine) setRole(address string, role user.Role) error {
	usr, err := cli.users.SetRole(context.Background(), address, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", usr.Address, usr.Role)
	return nil
}
