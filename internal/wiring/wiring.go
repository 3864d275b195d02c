// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/trove/internal/adapters/config"
	_ "go.trai.ch/trove/internal/adapters/fs"
	_ "go.trai.ch/trove/internal/adapters/loader"
	_ "go.trai.ch/trove/internal/adapters/logger"
	_ "go.trai.ch/trove/internal/adapters/overlays"
	_ "go.trai.ch/trove/internal/adapters/store"
	_ "go.trai.ch/trove/internal/adapters/watcher"
	// Register app, engine and kind nodes.
	_ "go.trai.ch/trove/internal/app"
	_ "go.trai.ch/trove/internal/engine/cache"
	_ "go.trai.ch/trove/internal/engine/plugin"
	_ "go.trai.ch/trove/internal/kinds"
)
