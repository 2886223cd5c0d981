// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schedule

import (
	"strconv"
	"strings"
	"time"
)

// evaluateCriteria returns true iff every criterion passes.
func evaluateCriteria(criteria []Criterion, now time.Time, ctx EvalContext) bool {
	for _, c := range criteria {
		if !evaluateCriterion(c, now, ctx) {
			return false
		}
	}
	return true
}

func evaluateCriterion(c Criterion, now time.Time, ctx EvalContext) bool {
	actual, ok := resolveMetric(c.Metric, now, ctx)
	if !ok {
		return false
	}
	return applyCondition(c.Condition, actual, c.Value)
}

// resolveMetric looks up a criterion's metric from date/time, weather, or
// the display-properties bag. The bool is false for unknown metrics.
func resolveMetric(metric string, now time.Time, ctx EvalContext) (string, bool) {
	switch metric {
	case "dayOfWeek":
		return now.Weekday().String(), true
	case "dayOfMonth":
		return strconv.Itoa(now.Day()), true
	case "month":
		return strconv.Itoa(int(now.Month())), true
	case "hour":
		return strconv.Itoa(now.Hour()), true
	case "isoDay":
		return strconv.Itoa(isoWeekday(now.Weekday())), true
	case "weatherTemp":
		if !ctx.Weather.Known {
			return "", false
		}
		return strconv.FormatFloat(ctx.Weather.TempC, 'f', -1, 64), true
	case "weatherHumidity":
		if !ctx.Weather.Known {
			return "", false
		}
		return strconv.FormatFloat(ctx.Weather.Humidity, 'f', -1, 64), true
	case "weatherWindSpeed":
		if !ctx.Weather.Known {
			return "", false
		}
		return strconv.FormatFloat(ctx.Weather.WindSpeed, 'f', -1, 64), true
	case "weatherCondition":
		if !ctx.Weather.Known {
			return "", false
		}
		return ctx.Weather.Condition, true
	case "weatherCloudCover":
		if !ctx.Weather.Known {
			return "", false
		}
		return strconv.FormatFloat(ctx.Weather.CloudCover, 'f', -1, 64), true
	default:
		if v, ok := ctx.DisplayProperties[metric]; ok {
			return v, true
		}
		return "", false
	}
}

// isoWeekday maps time.Weekday (Sunday=0) to ISO (Monday=1..Sunday=7).
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func applyCondition(condition, actual, value string) bool {
	switch condition {
	case "equals":
		return strings.EqualFold(actual, value)
	case "notEquals":
		return !strings.EqualFold(actual, value)
	case "contains":
		return strings.Contains(strings.ToLower(actual), strings.ToLower(value))
	case "notContains":
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(value))
	case "startsWith":
		return strings.HasPrefix(strings.ToLower(actual), strings.ToLower(value))
	case "endsWith":
		return strings.HasSuffix(strings.ToLower(actual), strings.ToLower(value))
	case "in":
		for _, opt := range strings.Split(value, ",") {
			if strings.EqualFold(actual, strings.TrimSpace(opt)) {
				return true
			}
		}
		return false
	case "greaterThan", "greaterThanOrEquals", "lessThan", "lessThanOrEquals":
		a, errA := strconv.ParseFloat(actual, 64)
		v, errV := strconv.ParseFloat(value, 64)
		if errA != nil || errV != nil {
			return false
		}
		switch condition {
		case "greaterThan":
			return a > v
		case "greaterThanOrEquals":
			return a >= v
		case "lessThan":
			return a < v
		default: // lessThanOrEquals
			return a <= v
		}
	default:
		return false
	}
}
