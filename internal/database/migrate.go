// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtyMigration は前回のマイグレーションが途中で失敗していることを示す。
var ErrDirtyMigration = errors.New("マイグレーションがdirty状態です")

// NewMigrator は埋め込みSQLを読むmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("マイグレーションソースの読み込みに失敗しました: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("マイグレーターの生成に失敗しました: %w", err)
	}
	return m, nil
}

// RunMigrations は未適用のマイグレーションをすべて適用し、適用後のバージョンを返す。
// すでに最新の場合もエラーにはならない。
func RunMigrations(databaseURL string) (uint, error) {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// RollbackMigration は直近のマイグレーションを1つ戻し、戻した後のバージョンを返す。
// すべて戻しきった場合は0を返す。
func RollbackMigration(databaseURL string) (uint, error) {
	return withMigrator(databaseURL, func(m *migrate.Migrate) error {
		return m.Steps(-1)
	})
}

func withMigrator(databaseURL string, step func(m *migrate.Migrate) error) (uint, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("マイグレーションの実行に失敗しました: %w", err)
	}
	return currentVersion(m)
}

// currentVersion は適用済みのバージョンを返す。未適用ならば0。
func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("マイグレーションバージョンの取得に失敗しました: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("バージョン%d: %w", version, ErrDirtyMigration)
	}
	return version, nil
}
