// Package domain models the weather and earthquake records persisted by the
// ingestion service.
//
// # Data Sources
//
// Hourly weather comes from the Open-Meteo forecast API
// (https://api.open-meteo.com/v1/forecast) for a single configured location.
// Earthquakes come from the USGS "all events, past day" geoJSON summary feed
// (https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson).
//
// # Conventions
//
// Timestamps:
//
//	All instants are held in UTC. Open-Meteo returns zone-less strings such as
//	"2024-04-26T15:00" when queried with timezone=UTC; those are read as UTC.
//	Strings with a "Z" designator or a numeric offset are converted to UTC.
//	USGS reports epoch milliseconds: 1700000000000 → 2023-11-14T22:13:20Z.
//
// Coordinates:
//
//	Latitude must lie in [-90, 90] and longitude in [-180, 180]. Out-of-range
//	values are rejected, never clamped. USGS geometry is [lon, lat, depth_km].
//
// Missing readings:
//
//	JSON null or an absent value means "no reading" and is kept distinct from
//	zero. Accessors return (value, ok) pairs.
//
// # Natural Keys
//
// Weather samples are unique on (timestamp, lat, lon, source); earthquakes on
// event id. Storage upserts on these keys, so re-ingesting the same feed is
// idempotent and the latest write wins.
package domain
