package register

// PickTarget chooses the annual register a new child is added to among keys, in list order:
// the first one whose collection is empty, else the first one.
// It is a form convenience, not a domain rule.
// ok is false when there is no annual register.
func PickTarget(keys []AnnualKey, isEmpty func(AnnualKey) bool) (key AnnualKey, ok bool) {
	if len(keys) == 0 {
		return AnnualKey{}, false
	}
	for _, k := range keys {
		if isEmpty(k) {
			return k, true
		}
	}
	return keys[0], true
}
