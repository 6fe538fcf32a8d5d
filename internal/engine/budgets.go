package engine

import (
	"context"

	"siteguard/internal/models"
	"siteguard/internal/storage"
)

// governedBudget is one budget that applies to the visited domain,
// labelled for logs and decisions.
type governedBudget struct {
	label  string
	policy *models.BudgetPolicy
}

// governed is the snapshot of persisted state loaded for one
// evaluation or tick: the full records for write-back, plus the
// budgets that actually govern the domain after the incognito and
// whitelist exceptions.
type governed struct {
	websites map[string]*models.BlockedWebsite
	groups   []*models.GroupTimeBudget

	site    *models.BlockedWebsite
	members []*models.GroupTimeBudget
}

// governing loads the persisted entities and resolves which budgets
// govern the domain. Incognito tabs skip budgets with BlockIncognito
// disabled. A whitelisted path exempts the per-website budget only;
// group budgets still govern the domain.
func (e *Engine) governing(ctx context.Context, domain, path string, incognito bool) (*governed, error) {
	settings, err := storage.LoadSettings(ctx, e.store)
	if err != nil {
		return nil, err
	}
	websites, err := storage.LoadBlockedWebsites(ctx, e.store)
	if err != nil {
		return nil, err
	}
	groups, err := storage.LoadGroupBudgets(ctx, e.store)
	if err != nil {
		return nil, err
	}

	g := &governed{websites: websites, groups: groups}

	if site, ok := websites[domain]; ok && site.Governs(domain) {
		exempt := incognito && !site.BlockIncognito
		if !exempt && settings.WhiteListPathsEnabled && site.PathAllowed(path) {
			exempt = true
		}
		if !exempt {
			g.site = site
		}
	}

	for _, group := range groups {
		if !group.Governs(domain) {
			continue
		}
		if incognito && !group.BlockIncognito {
			continue
		}
		g.members = append(g.members, group)
	}

	return g, nil
}

// ordered returns the governing budgets in evaluation order: the
// per-website budget first, then group budgets.
func (g *governed) ordered() []governedBudget {
	var budgets []governedBudget
	if g.site != nil {
		budgets = append(budgets, governedBudget{label: g.site.Website, policy: &g.site.BudgetPolicy})
	}
	for _, group := range g.members {
		budgets = append(budgets, governedBudget{label: "group:" + group.Name, policy: &group.BudgetPolicy})
	}
	return budgets
}

// persist writes back the records mutated by a tick. Only the maps a
// governing budget lives in are written.
func (g *governed) persist(ctx context.Context, gw storage.Gateway) error {
	if g.site != nil {
		if err := storage.SaveBlockedWebsites(ctx, gw, g.websites); err != nil {
			return err
		}
	}
	if len(g.members) > 0 {
		if err := storage.SaveGroupBudgets(ctx, gw, g.groups); err != nil {
			return err
		}
	}
	return nil
}
