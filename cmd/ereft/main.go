package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ereft/internal/app/commands"
	availabilityapp "ereft/internal/app/handlers/availability"
	bookingapp "ereft/internal/app/handlers/booking"
	propertyapp "ereft/internal/app/handlers/property"
	applease "ereft/internal/app/lease"
	"ereft/internal/app/middleware"
	appoutbox "ereft/internal/app/outbox"
	"ereft/internal/app/queries"
	"ereft/internal/app/uow"
	"ereft/internal/domain/access"
	"ereft/internal/domain/booking"
	"ereft/internal/domain/calendar"
	"ereft/internal/domain/property"
	kafkabroker "ereft/internal/infra/broker/kafka"
	"ereft/internal/infra/config"
	inframongo "ereft/internal/infra/db/mongo"
	ginserver "ereft/internal/infra/http/gin"
	redislease "ereft/internal/infra/lease/redis"
	"ereft/internal/infra/obs"
	infraoutbox "ereft/internal/infra/outbox"
	"ereft/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "lease", cfg.LeaseMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func() error

	mongoClient *inframongo.Client
	redisClient *goredis.Client
	producer    *kafkabroker.Producer
}

type backends struct {
	uowFactory uow.Factory
	properties property.Repository
	entries    calendar.Store
	rules      calendar.RuleRepository
	bookings   booking.Repository
	outbox     appoutbox.Outbox
	workerSide infraoutbox.Store
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	be, err := buildBackends(cfg, app)
	if err != nil {
		return nil, err
	}

	var leaseSvc applease.Service
	if cfg.LeaseMode == "redis" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.redisClient = client
		leaseSvc = redislease.NewLease(client, cfg.LeaseTimeout)
	} else {
		leaseSvc = memory.NewLease(cfg.LeaseTimeout)
	}

	gate := access.NewGate(cfg.AdminIdentities)
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()

	createBooking := &bookingapp.CreateBookingHandler{
		UoWFactory:  be.uowFactory,
		Lease:       leaseSvc,
		Outbox:      be.outbox,
		Encoder:     encoder,
		HorizonDays: cfg.BookingHorizonDays,
	}
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), createBooking)

	transitionBooking := &bookingapp.TransitionBookingHandler{
		UoWFactory: be.uowFactory,
		Lease:      leaseSvc,
		Gate:       gate,
		Outbox:     be.outbox,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, bookingapp.TransitionBookingCommand{}.Key(), transitionBooking)

	bulkUpsert := &availabilityapp.BulkUpsertCalendarHandler{
		UoWFactory: be.uowFactory,
		Lease:      leaseSvc,
		Gate:       gate,
	}
	commands.RegisterHandler(commandBus, availabilityapp.BulkUpsertCalendarCommand{}.Key(), bulkUpsert)

	setDate := &availabilityapp.SetCalendarDateHandler{
		UoWFactory: be.uowFactory,
		Lease:      leaseSvc,
		Gate:       gate,
	}
	commands.RegisterHandler(commandBus, availabilityapp.SetCalendarDateCommand{}.Key(), setDate)

	removeDate := &availabilityapp.RemoveCalendarDateHandler{
		UoWFactory: be.uowFactory,
		Lease:      leaseSvc,
		Gate:       gate,
	}
	commands.RegisterHandler(commandBus, availabilityapp.RemoveCalendarDateCommand{}.Key(), removeDate)

	commands.RegisterHandler(commandBus, availabilityapp.CreateRuleCommand{}.Key(), &availabilityapp.CreateRuleHandler{Gate: gate})
	commands.RegisterHandler(commandBus, availabilityapp.UpdateRuleCommand{}.Key(), &availabilityapp.UpdateRuleHandler{Gate: gate})
	commands.RegisterHandler(commandBus, availabilityapp.DeleteRuleCommand{}.Key(), &availabilityapp.DeleteRuleHandler{Gate: gate})
	commands.RegisterHandler(commandBus, propertyapp.CreatePropertyCommand{}.Key(), &propertyapp.CreatePropertyHandler{})
	commands.RegisterHandler(commandBus, propertyapp.DeletePropertyCommand{}.Key(), &propertyapp.DeletePropertyHandler{Gate: gate})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.ListCalendarQuery{}.Key(), &availabilityapp.ListCalendarHandler{
		Properties: be.properties,
		Entries:    be.entries,
		Rules:      be.rules,
		Gate:       gate,
	})
	queries.RegisterHandler(queryBus, availabilityapp.ListRulesQuery{}.Key(), &availabilityapp.ListRulesHandler{
		Properties: be.properties,
		Rules:      be.rules,
		Gate:       gate,
	})
	queries.RegisterHandler(queryBus, bookingapp.ListPropertyBookingsQuery{}.Key(), &bookingapp.ListPropertyBookingsHandler{
		Properties: be.properties,
		Bookings:   be.bookings,
		Gate:       gate,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{
		Properties: be.properties,
		Bookings:   be.bookings,
		Gate:       gate,
	})
	queries.RegisterHandler(queryBus, propertyapp.GetPropertyQuery{}.Key(), &propertyapp.GetPropertyHandler{
		Properties: be.properties,
	})

	idStore := memory.NewIdempotencyStore()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, cfg.IdempotencyTTL),
		middleware.Retry(logger, cfg.RetryBackoff),
		middleware.Transaction(be.uowFactory, nil),
		middleware.OutboxFlush(be.outbox, logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.producer = producer
		app.worker = &infraoutbox.Worker{
			Store:       be.workerSide,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		}
	}

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
		Property: ginserver.PropertyHandler{
			Commands:        commandBusWithMiddleware,
			Queries:         queryBusWithMiddleware,
			DefaultCurrency: cfg.DefaultCurrency,
		},
		AuthMiddleware: ginserver.AuthMiddleware{}.Handle,
	}
	return app, nil
}

func buildBackends(cfg config.Config, app *application) (backends, error) {
	if cfg.StorageMode == "mongo" {
		client, err := inframongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return backends{}, err
		}
		app.mongoClient = client
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		properties := inframongo.NewPropertyRepository(client.DB)
		entries := inframongo.NewCalendarStore(client.DB)
		rules := inframongo.NewRuleRepository(client.DB)
		bookings := inframongo.NewBookingRepository(client.DB)
		outboxStore := inframongo.NewOutboxStore(client.DB)
		return backends{
			uowFactory: inframongo.Factory{
				DB:           client.DB,
				PropertyRepo: properties,
				Entries:      entries,
				RuleRepo:     rules,
				BookingRepo:  bookings,
			},
			properties: properties,
			entries:    entries,
			rules:      rules,
			bookings:   bookings,
			outbox:     outboxStore,
			workerSide: outboxStore,
		}, nil
	}

	properties := memory.NewPropertyRepository()
	entries := memory.NewCalendarStore()
	rules := memory.NewRuleRepository()
	bookings := memory.NewBookingRepository()
	outboxStore := memory.NewOutbox()
	return backends{
		uowFactory: memory.Factory{
			PropertyRepo: properties,
			Entries:      entries,
			RuleRepo:     rules,
			BookingRepo:  bookings,
		},
		properties: properties,
		entries:    entries,
		rules:      rules,
		bookings:   bookings,
		outbox:     outboxStore,
		workerSide: outboxStore,
	}, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}
	if a.mongoClient != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongoClient.Close(closeCtx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}
