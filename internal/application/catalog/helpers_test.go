package catalog_test

import (
	"github.com/andrescamacho/spacetraders-autopilot/internal/application/catalog"
	"github.com/andrescamacho/spacetraders-autopilot/test/helpers"
)

func newService(world catalog.WorldSource, markets *helpers.MemoryMarketStore) *catalog.Service {
	return catalog.NewService(helpers.NewMemoryWaypointStore(), markets, world)
}
