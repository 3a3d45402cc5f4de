package cli

import (
	"context"

	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/storage"
	"github.com/estivenmendezr98/TAREAS/internal/sweeper"

	"github.com/spf13/cobra"
)

func newSweepCommand(st *state) *cobra.Command {
	var retention string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge recycle-bin items older than the retention period once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("retention") {
				d, err := config.ParseDuration(retention)
				if err != nil {
					return err
				}
				st.cfg.Lifecycle.Retention = d
			}

			result, err := sweepOnce(cmd.Context(), st.cfg, st.log)
			if err != nil {
				return err
			}
			if result.Skipped {
				cmd.Println("sweep skipped: another instance holds the lock")
				return nil
			}
			cmd.Printf("purged %d projects and %d tasks (%d evidence files)\n",
				result.Projects.Purged, result.Tasks.Purged, result.Projects.Files+result.Tasks.Files)
			return result.Err
		},
	}
	cmd.Flags().StringVar(&retention, "retention", "", "Override the retention period (e.g. 720h or 30d)")
	return cmd
}

// sweepOnce runs a single purge pass. Files are removed inline because no
// worker runs for a one-shot command.
func sweepOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) (sweeper.Result, error) {
	pool, err := openDatabase(cfg, log)
	if err != nil {
		return sweeper.Result{}, err
	}
	defer pool.Close()

	store, err := storage.NewDiskStoreFrom(cfg)
	if err != nil {
		return sweeper.Result{}, err
	}

	engine := lifecycle.NewEngine(pool.DB,
		lifecycle.WithFileRemover(store),
		lifecycle.WithLogger(log.With(logger.F("component", "lifecycle"))),
	)

	opts := []sweeper.Option{sweeper.WithLogger(log)}
	if redisCache := connectRedis(ctx, cfg, log); redisCache != nil {
		defer redisCache.Close()
		opts = append(opts, sweeper.WithLocker(redisCache))
	}

	return sweeper.New(engine, sweeper.ConfigFrom(cfg), opts...).RunOnce(ctx), nil
}
