package service

import (
	"sort"

	landedcostdomain "github.com/smallbiznis/landedcost/internal/landedcost/domain"
)

func sortSKUCosts(items []landedcostdomain.SKUCost) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SKUCode != items[j].SKUCode {
			return items[i].SKUCode < items[j].SKUCode
		}
		return items[i].SKUID < items[j].SKUID
	})
}
