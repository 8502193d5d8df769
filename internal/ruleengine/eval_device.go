package ruleengine

// evalDeviceTargeting mirrors the geographic check over platform and device
// type: union by default, intersection when the context sets checkBoth.
func evalDeviceTargeting(r *DeviceTargeting, ctx Context) bool {
	platform, hasPlatform := ctx.String(CtxPlatform)
	deviceType, hasDeviceType := ctx.String(CtxDeviceType)
	checkBoth, _ := ctx.Bool(CtxCheckBoth)

	platformMatch := hasPlatform && contains(r.Platforms, platform)
	deviceMatch := hasDeviceType && contains(r.DeviceTypes, deviceType)

	if checkBoth {
		return platformMatch && deviceMatch
	}
	return platformMatch || deviceMatch
}
