// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

// countryToContinent is a simple two-letter-country-code lookup covering the
// continents this spec recognizes. Unmapped countries yield an undefined
// continent, which never matches a continent filter (spec.md §4.2).
var countryToContinent = map[string]string{
	// North America
	"US": "north-america", "CA": "north-america", "MX": "north-america",
	"PA": "north-america", "CR": "north-america", "GT": "north-america",
	"DO": "north-america", "JM": "north-america", "CU": "north-america",

	// South America
	"BR": "south-america", "AR": "south-america", "CL": "south-america",
	"CO": "south-america", "PE": "south-america", "UY": "south-america",
	"EC": "south-america", "VE": "south-america", "BO": "south-america",
	"PY": "south-america",

	// Europe
	"GB": "europe", "DE": "europe", "FR": "europe", "NL": "europe",
	"IE": "europe", "ES": "europe", "IT": "europe", "SE": "europe",
	"NO": "europe", "FI": "europe", "DK": "europe", "PL": "europe",
	"CH": "europe", "AT": "europe", "BE": "europe", "PT": "europe",
	"CZ": "europe", "RO": "europe", "GR": "europe", "UA": "europe",

	// Asia
	"JP": "asia", "SG": "asia", "IN": "asia", "KR": "asia", "CN": "asia",
	"HK": "asia", "TW": "asia", "TH": "asia", "MY": "asia", "ID": "asia",
	"PH": "asia", "VN": "asia", "AE": "asia", "IL": "asia", "SA": "asia",
	"TR": "asia", "QA": "asia", "BH": "asia", "KZ": "asia",

	// Africa
	"ZA": "africa", "NG": "africa", "EG": "africa", "KE": "africa",
	"MA": "africa", "GH": "africa", "TZ": "africa", "SN": "africa",

	// Oceania
	"AU": "oceania", "NZ": "oceania", "FJ": "oceania", "PG": "oceania",
}

// continentOf resolves a two-letter country code to a continent tag.
// Returns "" for unmapped countries — an undefined continent, not an error.
func continentOf(countryCode string) string {
	return countryToContinent[countryCode]
}
