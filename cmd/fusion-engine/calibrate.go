package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skywatch-oss/fusion-engine/internal/calibration"
	"github.com/skywatch-oss/fusion-engine/internal/db"
)

func newCalibrateCmd(tuningPath *string) *cobra.Command {
	var taskType string

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Retrain confidence calibration from verified outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTuning(*tuningPath)
			if err != nil {
				return err
			}
			database, err := db.Open(dbPath())
			if err != nil {
				return err
			}
			defer database.Close()

			svc := calibration.NewService(db.NewCalibrationStore(database), cfg)
			m, err := svc.Retrain(taskType, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("task %s: A=%.4f B=%.4f samples=%d ece=%.4f\n",
				m.TaskType, m.PlattA, m.PlattB, m.SampleCount, m.ECE)
			return nil
		},
	}

	cmd.Flags().StringVar(&taskType, "task", "anomaly", "task type to retrain")
	return cmd
}
