package pipeline

import (
	"fmt"

	"userload/internal/config"
	"userload/internal/datasource/file"
	"userload/internal/storage"
)

// StorageConfig resolves the database settings of p, reading the password
// file if one is configured.
func StorageConfig(p config.Pipeline) (storage.Config, error) {
	pw, err := config.ReadSecret(p.Storage.DB.PasswordFile)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Kind:     p.Storage.Kind,
		DSN:      config.NormalizeDSN(p.Storage.DB.DSN),
		User:     p.Storage.DB.User,
		Password: pw,
		Table:    p.Storage.DB.Table,
	}, nil
}

// FromConfig turns a validated Pipeline into run Options.
func FromConfig(p config.Pipeline) (Options, error) {
	if p.Source.Kind != "" && p.Source.Kind != "file" {
		return Options{}, fmt.Errorf("unsupported source.kind=%s", p.Source.Kind)
	}
	if p.Source.File.Path == "" {
		return Options{}, fmt.Errorf("source.file.path is required")
	}
	mode, err := storage.ParseMode(p.Runtime.Mode)
	if err != nil {
		return Options{}, err
	}
	scfg, err := StorageConfig(p)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Job:     p.Job,
		Source:  file.NewLocal(p.Source.File.Path),
		Storage: scfg,
		Loader: storage.LoaderConfig{
			Mode:      mode,
			BatchSize: p.Runtime.BatchSize,
			Job:       p.Job,
		},
		Migrate:      p.Storage.DB.Migrate,
		DropExamples: p.Runtime.DropExamples,
	}, nil
}
