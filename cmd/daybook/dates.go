package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/daybookhq/daybook/internal/model"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseNaturalDate accepts YYYY-MM-DD or natural language ("tomorrow",
// "next friday") and returns a canonical date string.
func parseNaturalDate(input string) (string, error) {
	if _, err := time.Parse(model.DateLayout, input); err == nil {
		return input, nil
	}

	r, err := dateParser.Parse(input, time.Now())
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognized date %q (try YYYY-MM-DD or e.g. \"tomorrow\")", input)
	}
	return r.Time.Format(model.DateLayout), nil
}
