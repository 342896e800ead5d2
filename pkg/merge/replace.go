package merge

// ReplaceStrategy discards all but the highest-priority source
type ReplaceStrategy struct{}

func (*ReplaceStrategy) Name() string { return "replace" }

func (*ReplaceStrategy) Validate(content interface{}) ValidationResult {
	return valid()
}

func (*ReplaceStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	return contents[len(contents)-1], nil
}
