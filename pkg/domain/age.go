package domain

import "time"

// MinKYCAge is the youngest age at which a KYC submission is accepted.
const MinKYCAge = 18

// AgeAt returns completed years between birthDate and now, compared in UTC.
// A February 29th birthday is only reached on March 1st in common years.
func AgeAt(birthDate, now time.Time) int {
	birth, at := birthDate.UTC(), now.UTC()
	years := at.Year() - birth.Year()
	if at.Before(birth.AddDate(years, 0, 0)) {
		years--
	}
	return years
}

// IsOver18 reports whether the holder of birthDate has reached MinKYCAge at now.
func IsOver18(birthDate, now time.Time) bool {
	return AgeAt(birthDate, now) >= MinKYCAge
}
