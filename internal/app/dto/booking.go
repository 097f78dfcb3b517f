package dto

import (
	"time"

	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
)

type Booking struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	CarID          string         `json:"car_id"`
	PickupAt       time.Time      `json:"pickup_at"`
	ReturnAt       time.Time      `json:"return_at"`
	WithDriver     bool           `json:"with_driver"`
	PickupLocation string         `json:"pickup_location"`
	ReturnLocation string         `json:"return_location"`
	CouponCode     string         `json:"coupon_code,omitempty"`
	Status         string         `json:"status"`
	PaymentStatus  string         `json:"payment_status"`
	Price          PriceBreakdown `json:"price"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int64          `json:"version"`
}

type CarSpecs struct {
	Color        string `json:"color,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
}

type BookingCar struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	ImageURL           *string   `json:"car_image"`
	SecurityDeposit    *MoneyDTO `json:"security_deposit,omitempty"`
	Specs              CarSpecs  `json:"specs"`
}

type BookingUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type BookingDetail struct {
	Booking
	Car  BookingCar  `json:"car"`
	User BookingUser `json:"user"`
}

type BookingSummary struct {
	ID            string     `json:"id"`
	Car           BookingCar `json:"car"`
	UserID        string     `json:"user_id"`
	PickupAt      time.Time  `json:"pickup_at"`
	ReturnAt      time.Time  `json:"return_at"`
	WithDriver    bool       `json:"with_driver"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Total         MoneyDTO   `json:"total_amount"`
	CreatedAt     time.Time  `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

// MapBooking renders b with its lifecycle state as observed at now.
func MapBooking(b *domainbooking.Booking, now time.Time) Booking {
	return Booking{
		ID:             string(b.ID),
		UserID:         b.UserID,
		CarID:          string(b.CarID),
		PickupAt:       b.Interval.Pickup,
		ReturnAt:       b.Interval.Return,
		WithDriver:     b.WithDriver,
		PickupLocation: b.PickupLocation,
		ReturnLocation: b.ReturnLocation,
		CouponCode:     b.CouponCode,
		Status:         string(b.StatusAt(now)),
		PaymentStatus:  string(b.PaymentStatus),
		Price:          MapPriceBreakdown(b.Price),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Version:        b.Version,
	}
}

// MapBookingCar tolerates a missing car, leaving only the id.
func MapBookingCar(id domaincars.CarID, car *domaincars.Car, imageURL *string) BookingCar {
	out := BookingCar{ID: string(id), ImageURL: imageURL}
	if car == nil {
		return out
	}
	out.Name = car.Name()
	out.RegistrationNumber = car.RegistrationNumber
	out.Specs = CarSpecs{Color: car.Color, Transmission: car.Transmission, FuelType: car.FuelType}
	if car.SecurityDeposit.Amount > 0 {
		deposit := MapMoney(car.SecurityDeposit)
		out.SecurityDeposit = &deposit
	}
	return out
}

func MapBookingSummary(b *domainbooking.Booking, car BookingCar, now time.Time) BookingSummary {
	return BookingSummary{
		ID:            string(b.ID),
		Car:           car,
		UserID:        b.UserID,
		PickupAt:      b.Interval.Pickup,
		ReturnAt:      b.Interval.Return,
		WithDriver:    b.WithDriver,
		Status:        string(b.StatusAt(now)),
		PaymentStatus: string(b.PaymentStatus),
		Total:         MapMoney(b.Price.Total),
		CreatedAt:     b.CreatedAt,
	}
}
