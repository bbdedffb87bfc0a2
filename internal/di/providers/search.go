package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/library-server/internal/config"
	"github.com/listenupapp/library-server/internal/logger"
	"github.com/listenupapp/library-server/internal/search"
	"github.com/listenupapp/library-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when full-text search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Full-text search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Search.Path,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "path", cfg.Search.Path, "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// SearchServiceHandle holds the search service, nil when search is disabled.
type SearchServiceHandle struct {
	*service.SearchService
}

// ProvideSearchService provides the search service and registers it with the
// store so catalog writes keep the index current.
func ProvideSearchService(i do.Injector) (*SearchServiceHandle, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if indexHandle.SearchIndex == nil {
		return &SearchServiceHandle{}, nil
	}

	svc := service.NewSearchService(indexHandle.SearchIndex, storeHandle.Store, log.Logger)
	storeHandle.SetSearchIndexer(svc)

	return &SearchServiceHandle{SearchService: svc}, nil
}
