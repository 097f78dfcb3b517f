package dto

import (
	"time"

	domaincars "carrental/internal/domain/cars"
	domainpricing "carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/money"
)

type PriceBreakdown struct {
	Hours             int64    `json:"duration_hours"`
	HourlyRate        MoneyDTO `json:"rate_per_hour"`
	BaseCost          MoneyDTO `json:"base_cost"`
	DriverFee         MoneyDTO `json:"driver_fee"`
	RequestedDiscount MoneyDTO `json:"requested_discount"`
	Discount          MoneyDTO `json:"discount"`
	Tax               MoneyDTO `json:"tax"`
	Total             MoneyDTO `json:"total_amount"`
}

type PreviewCar struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	RegistrationNumber string   `json:"registration_number"`
	RatePerHour        MoneyDTO `json:"rate_per_hour"`
	ImageURL           *string  `json:"car_image"`
}

type BookingPreview struct {
	Car        PreviewCar     `json:"car"`
	PickupAt   time.Time      `json:"pickup_at"`
	ReturnAt   time.Time      `json:"return_at"`
	WithDriver bool           `json:"with_driver"`
	Price      PriceBreakdown `json:"price"`
}

func MapPriceBreakdown(b domainpricing.Breakdown) PriceBreakdown {
	return PriceBreakdown{
		Hours:             b.Hours,
		HourlyRate:        MapMoney(b.HourlyRate),
		BaseCost:          MapMoney(b.BaseCost),
		DriverFee:         MapMoney(b.DriverFee),
		RequestedDiscount: MapMoney(b.RequestedDiscount),
		Discount:          MapMoney(b.Discount),
		Tax:               MapMoney(b.Tax),
		Total:             MapMoney(b.Total),
	}
}

func MapPreviewCar(car *domaincars.Car, rate money.Money, imageURL *string) PreviewCar {
	return PreviewCar{
		ID:                 string(car.ID),
		Name:               car.Name(),
		RegistrationNumber: car.RegistrationNumber,
		RatePerHour:        MapMoney(rate),
		ImageURL:           imageURL,
	}
}
