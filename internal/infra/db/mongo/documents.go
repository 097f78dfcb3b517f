package mongo

import (
	"time"

	domainbooking "carrental/internal/domain/booking"
	domaincars "carrental/internal/domain/cars"
	"carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/interval"
	"carrental/internal/domain/shared/money"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type priceDocument struct {
	Hours             int64         `bson:"hours"`
	HourlyRate        moneyDocument `bson:"hourly_rate"`
	BaseCost          moneyDocument `bson:"base_cost"`
	DriverFee         moneyDocument `bson:"driver_fee"`
	RequestedDiscount moneyDocument `bson:"requested_discount"`
	Discount          moneyDocument `bson:"discount"`
	Tax               moneyDocument `bson:"tax"`
	Total             moneyDocument `bson:"total"`
}

func newPriceDocument(b pricing.Breakdown) priceDocument {
	return priceDocument{
		Hours:             b.Hours,
		HourlyRate:        newMoneyDocument(b.HourlyRate),
		BaseCost:          newMoneyDocument(b.BaseCost),
		DriverFee:         newMoneyDocument(b.DriverFee),
		RequestedDiscount: newMoneyDocument(b.RequestedDiscount),
		Discount:          newMoneyDocument(b.Discount),
		Tax:               newMoneyDocument(b.Tax),
		Total:             newMoneyDocument(b.Total),
	}
}

func (d priceDocument) toBreakdown() pricing.Breakdown {
	return pricing.Breakdown{
		Hours:             d.Hours,
		HourlyRate:        d.HourlyRate.toMoney(),
		BaseCost:          d.BaseCost.toMoney(),
		DriverFee:         d.DriverFee.toMoney(),
		RequestedDiscount: d.RequestedDiscount.toMoney(),
		Discount:          d.Discount.toMoney(),
		Tax:               d.Tax.toMoney(),
		Total:             d.Total.toMoney(),
	}
}

type bookingDocument struct {
	ID             string        `bson:"_id"`
	UserID         string        `bson:"user_id"`
	CarID          string        `bson:"car_id"`
	CarOwnerID     string        `bson:"car_owner_id"`
	Pickup         time.Time     `bson:"pickup"`
	Return         time.Time     `bson:"return"`
	WithDriver     bool          `bson:"with_driver"`
	Price          priceDocument `bson:"price"`
	CouponCode     string        `bson:"coupon_code,omitempty"`
	PickupLocation string        `bson:"pickup_location,omitempty"`
	ReturnLocation string        `bson:"return_location,omitempty"`
	State          string        `bson:"state"`
	PaymentStatus  string        `bson:"payment_status"`
	PaymentOrderID string        `bson:"payment_order_id,omitempty"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
	Version        int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:             string(b.ID),
		UserID:         b.UserID,
		CarID:          string(b.CarID),
		CarOwnerID:     string(b.CarOwnerID),
		Pickup:         b.Interval.Pickup.UTC(),
		Return:         b.Interval.Return.UTC(),
		WithDriver:     b.WithDriver,
		Price:          newPriceDocument(b.Price),
		CouponCode:     b.CouponCode,
		PickupLocation: b.PickupLocation,
		ReturnLocation: b.ReturnLocation,
		State:          string(b.State),
		PaymentStatus:  string(b.PaymentStatus),
		PaymentOrderID: b.PaymentOrderID,
		CreatedAt:      b.CreatedAt.UTC(),
		UpdatedAt:      b.UpdatedAt.UTC(),
		Version:        b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:             domainbooking.BookingID(d.ID),
		UserID:         d.UserID,
		CarID:          domaincars.CarID(d.CarID),
		CarOwnerID:     domaincars.OwnerID(d.CarOwnerID),
		Interval:       interval.RentalInterval{Pickup: d.Pickup.UTC(), Return: d.Return.UTC()},
		WithDriver:     d.WithDriver,
		Price:          d.Price.toBreakdown(),
		CouponCode:     d.CouponCode,
		PickupLocation: d.PickupLocation,
		ReturnLocation: d.ReturnLocation,
		State:          domainbooking.State(d.State),
		PaymentStatus:  domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentOrderID: d.PaymentOrderID,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Version:        d.Version,
	}
}

// carDocument mirrors the catalog collection owned by the car service.
type carDocument struct {
	ID                 string        `bson:"_id"`
	OwnerID            string        `bson:"owner_id"`
	Make               string        `bson:"make"`
	Model              string        `bson:"model"`
	Color              string        `bson:"color"`
	RegistrationNumber string        `bson:"registration_number"`
	Status             string        `bson:"status"`
	PricePerDay        moneyDocument `bson:"price_per_day"`
	HourlyRate         moneyDocument `bson:"hourly_rate"`
	SecurityDeposit    moneyDocument `bson:"security_deposit"`
	FrontImage         string        `bson:"front_image"`
	Transmission       string        `bson:"transmission"`
	FuelType           string        `bson:"fuel_type"`
}

func (d carDocument) toCar() *domaincars.Car {
	return &domaincars.Car{
		ID:                 domaincars.CarID(d.ID),
		OwnerID:            domaincars.OwnerID(d.OwnerID),
		Make:               d.Make,
		Model:              d.Model,
		Color:              d.Color,
		RegistrationNumber: d.RegistrationNumber,
		Status:             d.Status,
		PricePerDay:        d.PricePerDay.toMoney(),
		HourlyRate:         d.HourlyRate.toMoney(),
		SecurityDeposit:    d.SecurityDeposit.toMoney(),
		FrontImage:         d.FrontImage,
		Transmission:       d.Transmission,
		FuelType:           d.FuelType,
	}
}
