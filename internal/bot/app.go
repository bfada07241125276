// Package bot wires the subscription-gate flow onto the reusable bot core.
package bot

import (
	"context"
	"sync"
	"time"

	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subgate/core/bootstrap"
	coretelegram "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/core/telegram/middleware"
	"github.com/m3rciful/subgate/core/telegram/router"
	"github.com/m3rciful/subgate/internal/flow"
	"github.com/m3rciful/subgate/internal/gate"
	"github.com/m3rciful/subgate/internal/relay"
	"github.com/m3rciful/subgate/internal/sessions"
	"github.com/m3rciful/subgate/internal/storage"
	"github.com/m3rciful/subgate/internal/transport"
)

// App is the assembled subscription-gate bot.
type App struct {
	cfg     *Config
	store   sessions.Store
	db      *sqlx.DB
	journal flow.Journal
	loc     *time.Location

	mu      sync.RWMutex
	machine *flow.Machine
	runtime coretelegram.Runtime
}

// NewApp bootstraps infrastructure (logger, optional journal database) and
// builds the application.
func NewApp(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:      &cfg.Core,
		Database:    cfg.Database,
		UseDatabase: cfg.UseDatabase(),
	})
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Gate.OperatorTimezone)
	if err != nil {
		return nil, fmt.Errorf("bot: load operator timezone: %w", err)
	}

	app := &App{
		cfg:   cfg,
		store: sessions.NewMemoryStore(),
		db:    res.DB,
		loc:   loc,
	}
	if res.DB != nil {
		app.journal = storage.NewContactJournal(res.DB)
	}
	return app, nil
}

// TelegramRunOptions assembles the registry, routes and middleware chain for
// the core Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerHandlers(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(fsmAdapter{app: a}, reg, router.TextOptions{})...)
	routes = append(routes, coretelegram.Route{
		Endpoint: tele.OnContact,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(a.handleContact)),
	})

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnError:     a.onDispatchError,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.bindRuntime(rt)
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}

// bindRuntime builds the transport-dependent parts once the bot instance
// exists. It runs before the first update is polled.
func (a *App) bindRuntime(rt coretelegram.Runtime) {
	adapter := transport.NewBot(rt.Bot)
	checker := gate.NewChecker(
		adapter,
		a.cfg.Gate.Channel,
		time.Duration(a.cfg.Gate.CheckTimeoutSeconds)*time.Second,
	)
	rel := relay.New(adapter, a.cfg.Gate.OperatorChatID, a.loc)
	msgs := flow.Messages{
		ChannelName: a.cfg.Gate.Channel,
		ChannelLink: a.cfg.ChannelLink(),
	}

	a.mu.Lock()
	a.machine = flow.NewMachine(adapter, a.store, checker, rel, msgs, a.journal)
	a.runtime = rt
	a.mu.Unlock()
}

func (a *App) machineRef() *flow.Machine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine
}

// fsmAdapter routes stray text from users who are mid-conversation.
type fsmAdapter struct {
	app *App
}

func (f fsmAdapter) InProgress(userID int64) bool {
	return f.app.store.Get(userID).Stage == sessions.StageAwaitingContact
}

func (f fsmAdapter) ManagerHandler(c tele.Context) error {
	return f.app.handleAwaitingContactText(c)
}
