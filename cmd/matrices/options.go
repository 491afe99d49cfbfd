package main

import (
	"fmt"

	"github.com/Danielfrancoi/matrices/internal/logger"
	"github.com/Danielfrancoi/matrices/internal/matmul"
	"github.com/Danielfrancoi/matrices/internal/spawn"
	"github.com/Danielfrancoi/matrices/internal/threads"
)

// strategyOptions turns the strategy flags into matmul options. Child
// processes inherit the parent's log level and format.
func strategyOptions() (matmul.Options, error) {
	sp, err := spawn.NewExecSpawner(logger.Environ(logLevel, logFormat)...)
	if err != nil {
		return matmul.Options{}, fmt.Errorf("worker executable: %w", err)
	}
	opts := matmul.Options{
		Chunk:    chunk,
		ShmDir:   shmDir,
		ShmName:  shmName,
		Launcher: launcher,
		Addr:     hubAddr,
		Spawner:  sp,
	}
	if maxThreads > 0 {
		opts.Budget = threads.NewBudget(maxThreads)
	}
	return opts, nil
}
