package cli

import (
	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/spf13/cobra"
)

func newMigrateCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openDatabase(st.cfg, st.log)
			if err != nil {
				return err
			}
			defer pool.Close()

			st.log.Info("schema is up to date", logger.F("driver", st.cfg.Database.Driver))
			cmd.Println("migration complete")
			return nil
		},
	}
}
