package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bitepath/internal/app"
	"bitepath/internal/config"
	"bitepath/internal/database"
	"bitepath/internal/grocery"
	"bitepath/internal/logging"
	"bitepath/internal/metrics"
	"bitepath/internal/planner"
	"bitepath/internal/storage"
)

// rootOptions are the persistent flags. Empty values fall back to the environment.
type rootOptions struct {
	dbPath   string
	stateDir string
	user     string
	units    string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "bitepath",
		Short:         "bitepath builds grocery lists from your meal plan",
		Long:          "bitepath plans meals and turns them into a shared, checkable grocery list with imperial or metric amounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dbPath, "db", "", "Path to SQLite database (default $BITEPATH_DB_PATH)")
	pf.StringVar(&opts.stateDir, "state-dir", "", "Directory for checked-off and hand-added items (default $BITEPATH_STATE_DIR)")
	pf.StringVar(&opts.user, "user", "", "User the lists belong to (default $BITEPATH_USER_ID)")
	pf.StringVar(&opts.units, "units", "", "Override the display system: imperial or metric")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (default $LOG_LEVEL)")

	root.AddCommand(
		newAddMealCmd(opts),
		newPlanCmd(opts),
		newGroceryCmd(opts),
		newTodayCmd(opts),
		newToggleCmd(opts),
		newClearCmd(opts),
		newAddItemCmd(opts),
		newRemoveItemCmd(opts),
		newClearItemsCmd(opts),
		newUnitsCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// env is everything a command needs, opened from flags and environment.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *database.DB
	plans *planner.PlanRepository
	kv    *storage.FileStore
	app   *app.App
}

func (o *rootOptions) open() (*env, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	if o.stateDir != "" {
		cfg.StateDir = o.stateDir
	}
	if o.user != "" {
		cfg.UserID = o.user
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.units != "" {
		system, err := grocery.ParseUnitSystem(o.units)
		if err != nil {
			return nil, fmt.Errorf("--units: %w", err)
		}
		cfg.UnitSystem = system
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.NewDB(cfg.DatabasePath, log.Named("database"))
	if err != nil {
		return nil, err
	}
	kv, err := storage.NewFileStore(cfg.StateDir, log.Named("storage"))
	if err != nil {
		db.Close()
		return nil, err
	}

	plans := planner.NewPlanRepository(db.SQL)
	a := app.NewApp(plans, planner.NewProfileRepository(db.SQL), kv, app.Options{
		UnitSystem: cfg.UnitSystem,
		Recorder:   metrics.New(),
		Logger:     log.Named("app"),
	})
	return &env{cfg: cfg, log: log, db: db, plans: plans, kv: kv, app: a}, nil
}

func (e *env) Close() {
	e.app.Close()
	e.db.Close()
	_ = e.log.Sync()
}

func (o *rootOptions) with(run func(*env) error) error {
	e, err := o.open()
	if err != nil {
		return err
	}
	defer e.Close()
	return run(e)
}
