package domain

// validateLatitude rejects values outside [-90, 90]. NaN fails both bounds.
func validateLatitude(lat float64) error {
	if !(lat >= -90 && lat <= 90) {
		return &ValidationError{Field: "lat", Value: lat, Reason: "must be between -90 and 90"}
	}
	return nil
}

// validateLongitude rejects values outside [-180, 180].
func validateLongitude(lon float64) error {
	if !(lon >= -180 && lon <= 180) {
		return &ValidationError{Field: "lon", Value: lon, Reason: "must be between -180 and 180"}
	}
	return nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func readFloat(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Float returns a pointer to v. Handy for building inputs with a reading.
func Float(v float64) *float64 { return &v }
