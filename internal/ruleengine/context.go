package ruleengine

import "fmt"

// Well-known context keys consumed by the rule variants.
const (
	CtxUserID     = "userId"
	CtxGroupID    = "groupId"
	CtxAppVersion = "appVersion"
	CtxCountry    = "country"
	CtxRegion     = "region"
	CtxCheckBoth  = "checkBoth"
	CtxPlatform   = "platform"
	CtxDeviceType = "deviceType"
)

// Context is the attribute bag supplied per evaluation call. It maps
// attribute names to arbitrary scalar values and is never persisted.
//
// Lookups fail closed: a missing key or a value of the wrong type reads as
// "not present", so rules evaluate to false instead of erroring. This keeps
// the evaluation path pure and panic-free regardless of caller input.
type Context map[string]any

// String returns the value under key if it is a string.
func (c Context) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value under key if it is a bool.
func (c Context) Bool(key string) (bool, bool) {
	v, ok := c[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Stringify returns the value under key rendered as a string, using the
// value's natural formatting. Used by CustomRules, which compares against
// configured string values regardless of the context value's type.
func (c Context) Stringify(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}
