package sitegen

import "fmt"

// buildCollections groups pages into "all", one collection per tag, and
// every custom collection registered on the config.
func (e *Engine) buildCollections(pages []*Page) (Collections, error) {
	var eligible []*Page
	for _, p := range pages {
		if p.excluded || p.pagination != nil {
			continue
		}
		eligible = append(eligible, p)
	}
	sortPages(eligible)

	cols := Collections{"all": eligible}
	for _, p := range eligible {
		for _, t := range p.Tags {
			if t == "all" {
				continue
			}
			list, _ := cols[t].([]*Page)
			cols[t] = append(list, p)
		}
	}

	api := NewCollectionAPI(eligible)
	for name, fn := range e.cfg.Collections {
		if name == "all" {
			return nil, fmt.Errorf("sitegen: collection name %q is reserved", name)
		}
		cols[name] = fn(api)
	}
	return cols, nil
}
