package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/assignment"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/message"
	"github.com/trezcool/kampus/core/stats"
	"github.com/trezcool/kampus/core/user"
	emailsvc "github.com/trezcool/kampus/services/email"
	logsvc "github.com/trezcool/kampus/services/logger"
	"github.com/trezcool/kampus/storage/database"
	sqlxrepos "github.com/trezcool/kampus/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	sdb, err := database.Open(core.Conf)
	errAndDie(err)
	defer func() { _ = sdb.Close() }()
	db := sqlx.NewDb(sdb, core.Conf.Database.Engine)

	// set up repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	asgRepo := sqlxrepos.NewAssignmentRepository(db)
	msgRepo := sqlxrepos.NewMessageRepository(db)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo, usrSvc)
	msgSvc := message.NewService(msgRepo, usrSvc)
	asgSvc := assignment.NewService(asgRepo, crsRepo, msgSvc)
	statsSvc := stats.NewService(usrRepo, crsRepo, asgRepo, msgRepo)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:       core.Conf.Server.Address(),
			Logger:        logger,
			Shutdown:      shutdown,
			UserSvc:       usrSvc,
			CourseSvc:     crsSvc,
			AssignmentSvc: asgSvc,
			MessageSvc:    msgSvc,
			StatsSvc:      statsSvc,
		},
	)
	go app.Start()

	<-shutdown
	std.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		std.Printf("graceful shutdown failed: %v", err)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
