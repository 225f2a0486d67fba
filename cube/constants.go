// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

// Physical and instrument constants shared by the readers.
const (
	// SpeedOfLight in m/s
	SpeedOfLight = 299792458.0

	// ArcsecPerDegree converts WCS pixel scales to arcseconds
	ArcsecPerDegree = 3600.0

	// GREAT forward and main beam efficiencies, and the Kelvin to Jansky calibration factor
	EtaFSS           = 0.97
	EtaMB            = 0.67
	GreatCalibration = 971.0

	// TbToJy converts GREAT brightness temperatures [K] into flux densities [Jy]
	TbToJy = GreatCalibration * EtaFSS * EtaMB

	// GildasOrigin is the ORIGIN of GREAT cubes written by GILDAS/CLASS, which carry no INSTRUME card
	GildasOrigin = "GILDAS Consortium"
)
