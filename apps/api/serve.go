package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
	"github.com/trezcool/registrar/services/bus"
	logsvc "github.com/trezcool/registrar/services/logger"
	"github.com/trezcool/registrar/services/restapi"
	inmemdb "github.com/trezcool/registrar/storage/inmem"
)

var registerTopics = []string{
	register.TopicParentAdded,
	register.TopicParentDeleted,
	register.TopicChildSaved,
	register.TopicChildDeleted,
	register.TopicDocumentUploaded,
	register.TopicDocumentDeleted,
	register.TopicError,
}

func serve(demo bool) error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	if conf.Build == "" || conf.Build == "develop" {
		conf.Build = build
	}
	conf.Demo = conf.Demo || demo

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	var client register.Client
	if conf.Demo {
		client = inmemdb.NewClient(inmemdb.Open(inmemdb.DemoFixtures()))
		logger.Info("serving from the in-memory backend")
	} else {
		client = restapi.NewClient(conf.Backend, logger)
	}

	msgBus := bus.New(logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	register.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	events := expvar.NewMap("register_events")
	for _, topic := range registerTopics {
		topic := topic
		unsubscribe := msgBus.Subscribe(topic, func(interface{}) { events.Add(topic, 1) })
		defer unsubscribe()
	}

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Client:     client,
			Bus:        msgBus,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		return err

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
	}
	return nil
}
