//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"insightbot/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite state driver not built: rebuild with -tags sqlite")
}
