package domain

import (
	"testing"
	"time"
)

func TestLeadTimeDays(t *testing.T) {
	cases := []struct {
		mode TransportMode
		days int
	}{
		{TransportAir, 1},
		{TransportTruck, 2},
		{TransportSea, 21},
		{TransportRail, 3},
		{TransportMode("CARRIER_PIGEON"), 3},
	}
	for _, c := range cases {
		if got := c.mode.LeadTimeDays(); got != c.days {
			t.Errorf("%s: expected %d days, got %d", c.mode, c.days, got)
		}
	}
}

func TestInitialShipmentStatus(t *testing.T) {
	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return today.AddDate(0, 0, offset) }
	ptr := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name      string
		departure time.Time
		estimate  *time.Time
		want      ShipmentStatus
	}{
		{"future departure", day(3), ptr(day(5)), ShipmentPlanned},
		{"departed, estimate today", day(-1), ptr(day(0)), ShipmentInTransit},
		{"departed, estimate ahead", day(0), ptr(day(2)), ShipmentInTransit},
		{"departed, estimate passed", day(-5), ptr(day(-1)), ShipmentDelayed},
		{"departed, no estimate", day(-1), nil, ShipmentDelayed},
	}
	for _, c := range cases {
		if got := InitialShipmentStatus(c.departure, c.estimate, today); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}

func TestAllowedShipmentTransition(t *testing.T) {
	allowed := [][2]ShipmentStatus{
		{ShipmentPlanned, ShipmentInTransit},
		{ShipmentPlanned, ShipmentCancelled},
		{ShipmentInTransit, ShipmentDelivered},
		{ShipmentInTransit, ShipmentDelayed},
		{ShipmentInTransit, ShipmentCancelled},
		{ShipmentDelayed, ShipmentInTransit},
		{ShipmentDelayed, ShipmentCancelled},
	}
	for _, pair := range allowed {
		if !AllowedShipmentTransition(pair[0], pair[1]) {
			t.Errorf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	rejected := [][2]ShipmentStatus{
		{ShipmentPlanned, ShipmentDelivered},
		{ShipmentPlanned, ShipmentDelayed},
		{ShipmentDelayed, ShipmentDelivered},
		{ShipmentDelivered, ShipmentInTransit},
		{ShipmentCancelled, ShipmentInTransit},
	}
	for _, pair := range rejected {
		if AllowedShipmentTransition(pair[0], pair[1]) {
			t.Errorf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}
