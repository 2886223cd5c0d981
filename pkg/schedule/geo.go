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

import "math"

const earthRadiusMeters = 6371000.0

// defaultRadiusMeters is used when a GeoLocation omits its radius.
const defaultRadiusMeters = 500.0

// withinGeoFence reports whether loc lies within geo's radius, using the
// Haversine great-circle distance. If the player's location is unknown,
// the geo-fence is permissive and admits the layout.
func withinGeoFence(geo *GeoLocation, loc PlayerLocation) bool {
	if !loc.Known || geo == nil {
		return true
	}
	radius := geo.RadiusM
	if radius <= 0 {
		radius = defaultRadiusMeters
	}
	return haversineMeters(loc.Lat, loc.Lng, geo.Lat, geo.Lng) <= radius
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
