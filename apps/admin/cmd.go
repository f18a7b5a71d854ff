package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/user"
)

var (
	// mockable funcs
	readPasswordFunc = term.ReadPassword

	// errors
	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	users   *user.Service
	courses *course.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                       - run a migration command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  adduser -address ADDRESS [-admin] [-prompt]  - register a user and print its token")
	fmt.Fprintln(cli.out, "  setrole -address ADDRESS -role ROLE          - change a user's role")
	fmt.Fprintln(cli.out, "  scramble -user ADDRESS | -course TAG         - issue a new token and print it")
	fmt.Fprintln(cli.out, "  cleantokens                                  - delete expired temporary tokens")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserAddress := addUserCmd.String("address", "", "The user's email address.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Give the user the admin role.")
	addUserPrompt := addUserCmd.Bool("prompt", false, "Prompt for the token instead of generating one.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleAddress := setRoleCmd.String("address", "", "The user's email address.")
	setRoleRole := setRoleCmd.String("role", "", "The new role: default or admin.")

	scrambleCmd := flag.NewFlagSet("scramble", flag.ContinueOnError)
	scrambleUser := scrambleCmd.String("user", "", "The address of the user whose token is replaced.")
	scrambleCourse := scrambleCmd.String("course", "", "The id or tag (institution/name/term/year) of the course whose token is replaced.")

	for _, fs := range []*flag.FlagSet{addUserCmd, setRoleCmd, scrambleCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserAddress == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := user.RoleDefault
		if *addUserAdmin {
			role = user.RoleAdmin
		}
		var token string
		if *addUserPrompt {
			fmt.Fprint(cli.out, "Enter token:")
			tok, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(tok) == 0 {
				addUserCmd.Usage()
				return errHelp
			}
			token = string(tok)
		}
		return cli.addUser(*addUserAddress, role, token)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		role, ok := user.ParseRole(*setRoleRole)
		if *setRoleAddress == "" || !ok {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleAddress, role)

	case "scramble":
		if err := scrambleCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if (*scrambleUser == "") == (*scrambleCourse == "") { // exactly one
			scrambleCmd.Usage()
			return errHelp
		}
		if *scrambleUser != "" {
			return cli.scrambleUser(*scrambleUser)
		}
		return cli.scrambleCourse(*scrambleCourse)

	case "cleantokens":
		return cli.cleanTokens()

	default:
		cli.printUsage()
		return errHelp
	}
}
