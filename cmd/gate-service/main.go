package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"parking-gate-service/internal/awsclient"
	"parking-gate-service/internal/config"
	"parking-gate-service/internal/db"
	"parking-gate-service/internal/device"
	"parking-gate-service/internal/domain/parking"
	httpapi "parking-gate-service/internal/http"
	"parking-gate-service/internal/logger"
	"parking-gate-service/internal/notify"
	"parking-gate-service/internal/repository"
	"parking-gate-service/internal/sensor"
	"parking-gate-service/internal/service"
)

var (
	_ service.Gate            = (*device.Session)(nil)
	_ service.PaymentTerminal = (*device.Session)(nil)
	_ service.EventRecorder   = (*repository.EventRepository)(nil)
	_ service.EventRecorder   = (*notify.SQSPublisher)(nil)
	_ service.Pusher          = (*sensor.PushSource)(nil)
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("gate service stopped with error")
	}
	log.Info().Msg("gate service stopped")
}

// app collects what the lanes share and what must be released on exit.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	ledger  service.Ledger
	events  service.EventRecorder
	finder  service.EventFinder
	fees    service.FeeCalculator
	admin   *service.AdminService
	loadAWS func() (aws.Config, error)

	taken   map[string]bool
	closers []func() error
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:   cfg,
		log:   log,
		fees:  service.NewFeeCalculator(cfg.Tariff.RatePerMinute),
		taken: make(map[string]bool),
		loadAWS: sync.OnceValues(func() (aws.Config, error) {
			return awsclient.Load(ctx, cfg.AWS)
		}),
	}
	defer a.close()

	if err := a.setupLedger(ctx); err != nil {
		return err
	}
	if err := a.setupEvents(); err != nil {
		return err
	}
	a.admin = service.NewAdminService(a.ledger, a.fees, a.finder, cfg.Recognition.MinConfidence, log.With().Str("component", "admin").Logger())

	workers, err := a.buildWorkers()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.Run(gctx) })
	}

	if cfg.HTTP.Enabled {
		a.serveHTTP(gctx, g)
	}

	log.Info().
		Str("ledger", cfg.Ledger.Driver).
		Bool("entry", cfg.Entry.Enabled).
		Bool("exit", cfg.Exit.Enabled).
		Bool("payment", cfg.Payment.Enabled).
		Msg("gate service started")

	return g.Wait()
}

type worker interface {
	Run(ctx context.Context) error
}

// buildWorkers opens every lane and the payment station before any of them
// runs, so a failure leaves nothing running on ports about to be closed.
func (a *app) buildWorkers() ([]worker, error) {
	var workers []worker
	for _, lc := range []struct {
		kind parking.LaneKind
		cfg  config.LaneConfig
	}{
		{parking.LaneEntry, a.cfg.Entry},
		{parking.LaneExit, a.cfg.Exit},
	} {
		if !lc.cfg.Enabled {
			continue
		}
		lane, err := a.buildLane(lc.kind, lc.cfg)
		if err != nil {
			return nil, err
		}
		workers = append(workers, lane)
	}

	if a.cfg.Payment.Enabled {
		station, err := a.buildPaymentStation()
		if err != nil {
			return nil, err
		}
		workers = append(workers, station)
	}
	return workers, nil
}

func (a *app) setupLedger(ctx context.Context) error {
	switch a.cfg.Ledger.Driver {
	case "postgres":
		gdb, err := db.New(a.cfg.Database, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return db.Close(gdb) })
		a.ledger = repository.NewLedgerRepository(gdb)
		if a.cfg.Events.Persist {
			events := repository.NewEventRepository(gdb)
			a.events = events
			a.finder = events
		}

	case "dynamodb":
		awsCfg, err := a.loadAWS()
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		ledger := repository.NewDynamoLedger(awsclient.NewDynamo(awsCfg, a.cfg.AWS.DynamoEndpoint), a.cfg.Ledger.DynamoTable)
		if a.cfg.AWS.DynamoEndpoint != "" {
			if err := ledger.EnsureTable(ctx); err != nil {
				return fmt.Errorf("ensure dynamodb table: %w", err)
			}
		}
		a.ledger = ledger

	case "memory":
		a.log.Warn().Msg("using in-memory ledger, records are lost on restart")
		a.ledger = repository.NewMemoryLedger()
	}
	return nil
}

func (a *app) setupEvents() error {
	recorders := service.MultiRecorder{service.NewLogRecorder(a.log.With().Str("component", "events").Logger())}
	if a.events != nil {
		recorders = append(recorders, a.events)
	}
	if url := a.cfg.Events.SQSQueueURL; url != "" {
		awsCfg, err := a.loadAWS()
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		recorders = append(recorders, notify.NewSQSPublisher(awsclient.NewSQS(awsCfg), url))
	}
	a.events = recorders
	return nil
}

func (a *app) openSession(name, configured string) (*device.Session, error) {
	port, err := device.ResolvePort(configured, a.cfg.Device.PortHints, a.taken)
	if err != nil {
		return nil, fmt.Errorf("%s serial port: %w", name, err)
	}
	a.taken[port] = true

	log := a.log.With().Str("lane", name).Logger()
	ch, err := device.OpenSerial(port, a.cfg.Device.BaudRate, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ch.Close)

	return device.NewSession(ch, device.SessionConfig{
		GateDwell:    a.cfg.Device.GateDwell,
		ReadyTimeout: a.cfg.Device.ReadyTimeout,
		DoneTimeout:  a.cfg.Device.DoneTimeout,
	}, log), nil
}

func (a *app) buildLane(kind parking.LaneKind, lc config.LaneConfig) (*service.Lane, error) {
	log := a.log.With().Str("lane", string(kind)).Logger()

	session, err := a.openSession(string(kind), lc.SerialPort)
	if err != nil {
		return nil, err
	}

	var source service.ObservationSource
	switch lc.Source {
	case "camera":
		awsCfg, err := a.loadAWS()
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		recognizer := sensor.NewRekognitionRecognizer(awsclient.NewRekognition(awsCfg), float32(a.cfg.Recognition.MinConfidence), log)
		frames := sensor.NewHTTPSnapshotSource(lc.SnapshotURL, lc.SnapshotUser, lc.SnapshotPassword)
		source = sensor.NewCameraSource(lc.CameraID, sensor.StaticProximity(lc.ProximityDistance), frames, recognizer, lc.ProximityLimit, lc.PollInterval, log)
	default:
		push := sensor.NewPushSource(lc.PushBuffer)
		a.admin.RegisterPushLane(kind, push)
		source = push
	}

	var handler service.PlateHandler
	if kind == parking.LaneEntry {
		handler = service.NewEntryController(a.ledger, session, a.cfg.Voting.EntryCooldown, a.events, log)
	} else {
		handler = service.NewExitController(a.ledger, session, a.events, log)
	}

	return service.NewLane(kind, source, a.cfg.Voting.Quorum, handler, a.log), nil
}

func (a *app) buildPaymentStation() (*service.PaymentController, error) {
	session, err := a.openSession(string(parking.LanePayment), a.cfg.Payment.SerialPort)
	if err != nil {
		return nil, err
	}
	log := a.log.With().Str("lane", string(parking.LanePayment)).Logger()
	return service.NewPaymentController(a.ledger, session, a.fees, a.cfg.Payment.ReadTimeout, a.events, log), nil
}

func (a *app) serveHTTP(ctx context.Context, g *errgroup.Group) {
	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := a.log.With().Str("component", "http").Logger()
	handler := httpapi.NewHandler(a.admin, log)
	router := httpapi.NewRouter(handler, a.cfg.HTTP.AllowedOrigins, a.cfg.Auth.JWTSecret, log)

	srv := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.HTTP.Host, strconv.Itoa(a.cfg.HTTP.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("failed to release resource")
		}
	}
}
