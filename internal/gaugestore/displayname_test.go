package gaugestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aerocal/gaugecore/internal/model"
)

func TestDisplayNameThreadGaugeRendersDecimalSizeAndGoNoGo(t *testing.T) {
	suffix := model.SuffixNoGo
	g := &model.Gauge{
		EquipmentType: model.EquipmentThreadGauge,
		GaugeID:       ptr("SP0001B"),
		Suffix:        &suffix,
		Spec: model.Specification{
			Thread: &model.ThreadSpecification{ThreadSize: "1/4-20", ThreadForm: "UN", ThreadClass: "2A"},
		},
	}
	assert.Equal(t, ".250-20 UN 2A Thread NO GO Gauge", displayName(g))
}

func TestDisplayNameSpareThreadGaugeFallsBackToSerialNumber(t *testing.T) {
	g := &model.Gauge{
		EquipmentType: model.EquipmentThreadGauge,
		SerialNumber:  "SN-9001",
	}
	assert.Equal(t, "S/N SN-9001", displayName(g))
}

func TestDisplayNameHandToolFormatsRangeAndUnitSymbol(t *testing.T) {
	g := &model.Gauge{
		EquipmentType: model.EquipmentHandTool,
		Spec: model.Specification{
			HandTool: &model.HandToolSpecification{ToolFormat: "caliper", RangeMin: 0, RangeMax: 6, Unit: "inch"},
		},
	}
	assert.Equal(t, `0-6" caliper`, displayName(g))
}

func TestDisplayNameLargeEquipmentOmitsCapacityWhenAbsent(t *testing.T) {
	g := &model.Gauge{
		EquipmentType: model.EquipmentLargeEquipment,
		Spec: model.Specification{
			LargeEquipment: &model.LargeEquipmentSpecification{Type: "Torque Wrench Stand"},
		},
	}
	assert.Equal(t, "Torque Wrench Stand", displayName(g))
}

func TestDecimalThreadSizeConvertsFractionalAndNumberedSizes(t *testing.T) {
	assert.Equal(t, ".250-20", decimalThreadSize("1/4-20"))
	assert.Equal(t, ".190-32", decimalThreadSize("10-32"))
	assert.Equal(t, ".375-16", decimalThreadSize(".375-16"))
	assert.Equal(t, "9/32-18", decimalThreadSize("9/32-18"))
}

func ptr(s string) *string { return &s }
