package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) scrambleUser(address string) error {
	secret, err := cli.users.Scramble(context.Background(), address)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "token: %s\n", secret)
	return nil
}

func (cli *commandLine) scrambleCourse(ref string) error {
	ctx := context.Background()
	c, err := cli.courses.Resolve(ctx, "", ref)
	if err != nil {
		return err
	}
	secret, err := cli.courses.Scramble(ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "course #%d token: %s\n", c.ID, secret)
	return nil
}

func (cli *commandLine) cleanTokens() error {
	n, err := cli.users.CleanTokens(context.Background(), nowFunc())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "removed %d expired tokens\n", n)
	return nil
}
