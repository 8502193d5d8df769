package ruleengine

// evalGeographicTargeting admits by membership in the country and/or region
// sets. The checkBoth context flag selects intersection semantics (both
// attributes must be present and listed); the default is union (either one
// suffices). An absent attribute can never satisfy its side of the check.
func evalGeographicTargeting(r *GeographicTargeting, ctx Context) bool {
	country, hasCountry := ctx.String(CtxCountry)
	region, hasRegion := ctx.String(CtxRegion)
	checkBoth, _ := ctx.Bool(CtxCheckBoth)

	countryMatch := hasCountry && contains(r.Countries, country)
	regionMatch := hasRegion && contains(r.Regions, region)

	if checkBoth {
		return countryMatch && regionMatch
	}
	return countryMatch || regionMatch
}
