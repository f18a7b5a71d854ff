package main

import (
	"log"
	"os"

	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/services/logger"
	"github.com/trezcool/academibot/storage/database"
	"github.com/trezcool/academibot/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	wd, err := os.Getwd()
	if err != nil {
		std.Fatal(err)
	}
	conf, err := core.LoadConfig(wd)
	if err != nil {
		std.Fatal(err)
	}
	logger := logsvc.NewStdLogger(std, conf.Debug)

	// set up DB
	db, err := database.Open(conf.Database)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	checker, err := core.NewChecker(conf.Credentials)
	if err != nil {
		logger.Fatal("credentials", err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		users:   user.NewService(sqlxrepos.NewUserRepository(db), checker, conf.TempAuthInterval),
		courses: course.NewService(sqlxrepos.NewCourseRepository(db), checker),
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
