// Package sht3x controls a Sensirion SHT30/SHT31/SHT35 temperature and
// humidity sensor over I²C.
//
// Each measurement is a single shot in high repeatability mode with clock
// stretching disabled: a trigger write, a fixed 15ms conversion wait, then a
// 6 byte read. The two 16 bit codes are converted with
//
//	T[°C]  = -45 + 175 * code / 65535
//	RH[%]  = 100 * code / 65535
//
// Both words carry a CRC-8 which is validated by default.
//
// # Datasheet
//
// https://sensirion.com/media/documents/213E6A3B/63A5A569/Datasheet_SHT3x_DIS.pdf
package sht3x
