package wialon_client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientFields(t *testing.T) {
	// JSON解码后的数字是float64，提取时应正确转换
	fields := ExtractClientFields(map[string]interface{}{
		"id": float64(1001),
		"nm": "运输公司",
		"fn": "ООО 运输公司",
	})
	assert.Equal(t, int64(1001), fields.WialonID)
	assert.Equal(t, "运输公司", fields.Name)
	assert.Equal(t, "ООО 运输公司", fields.FullName)
}

func TestExtractClientFields_完整名称缺失时回退到短名称(t *testing.T) {
	fields := ExtractClientFields(map[string]interface{}{
		"id": 1001,
		"nm": "运输公司",
	})
	assert.Equal(t, "运输公司", fields.FullName)
}

func TestExtractClientFields_nil条目返回零值(t *testing.T) {
	fields := ExtractClientFields(nil)
	assert.Equal(t, ClientFields{}, fields)
}

func TestExtractClientFields_字段类型异常降级为零值(t *testing.T) {
	fields := ExtractClientFields(map[string]interface{}{
		"id": map[string]interface{}{"unexpected": true},
		"nm": 12345,
	})
	assert.Equal(t, int64(0), fields.WialonID)
	assert.Equal(t, "12345", fields.Name)
}

func TestExtractObjectFields(t *testing.T) {
	fields := ExtractObjectFields(map[string]interface{}{
		"id":   float64(5001),
		"nm":   "КамАЗ 5320",
		"uid":  "860000000000001",
		"ph":   "+79990000001",
		"ph2":  "+79990000002",
		"bact": float64(1001),
	})
	assert.Equal(t, int64(5001), fields.WialonID)
	assert.Equal(t, "КамАЗ 5320", fields.Name)
	assert.Equal(t, "860000000000001", fields.TrackerID)
	assert.Equal(t, "+79990000001", fields.Phone)
	assert.Equal(t, int64(1001), fields.OwnerWialonID)
}

func TestExtractObjectFields_主号缺失时取副号(t *testing.T) {
	fields := ExtractObjectFields(map[string]interface{}{
		"id":  5001,
		"nm":  "车辆A",
		"ph2": "+79990000002",
	})
	assert.Equal(t, "+79990000002", fields.Phone)
}

func TestExtractObjectFields_归属缺失为零(t *testing.T) {
	fields := ExtractObjectFields(map[string]interface{}{
		"id": 5001,
		"nm": "车辆A",
	})
	assert.Equal(t, int64(0), fields.OwnerWialonID)
	assert.Empty(t, fields.Phone)
	assert.Empty(t, fields.TrackerID)
}

func TestExtractObjectFields_nil条目返回零值(t *testing.T) {
	assert.Equal(t, ObjectFields{}, ExtractObjectFields(nil))
}
