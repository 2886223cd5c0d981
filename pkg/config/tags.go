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

package config

import (
	"strings"

	"github.com/ettle/strcase"
)

// tagFieldMap maps a recognized CMS tag key to the Settings field it
// populates. Extensible: unknown keys are ignored, and new
// rows can be added here without touching ApplyTags's call sites.
var tagFieldMap = map[string]func(s *Settings, value string){
	"geoApiKey": func(s *Settings, value string) { s.GoogleGeoAPIKey = value },
}

// ApplyTags decodes the CMS's "key|value" tag strings onto s, ignoring any
// key not present in tagFieldMap.
func ApplyTags(s *Settings, tags []string) {
	for _, tag := range tags {
		key, value, ok := splitTag(tag)
		if !ok {
			continue
		}
		if setter, ok := tagFieldMap[normalizeTagKey(key)]; ok {
			setter(s, value)
		}
	}
}

func splitTag(tag string) (key, value string, ok bool) {
	parts := strings.SplitN(tag, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// normalizeTagKey canonicalizes a tag key to lowerCamelCase so lookups in
// tagFieldMap are resilient to the CMS sending "geo_api_key" or
// "GeoApiKey" variants of the same key.
func normalizeTagKey(key string) string {
	return strcase.ToCamel(strings.TrimSpace(key))
}
