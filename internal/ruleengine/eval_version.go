package ruleengine

// evalVersionTargeting admits app versions inside the configured range,
// inclusive on both ends.
func evalVersionTargeting(r *VersionTargeting, ctx Context) bool {
	version, ok := ctx.String(CtxAppVersion)
	if !ok {
		return false
	}

	return CompareVersions(version, r.MinVersion) >= 0 &&
		CompareVersions(version, r.MaxVersion) <= 0
}
