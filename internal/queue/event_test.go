package queue

import "testing"

func validEvent() OrderEvent {
	return OrderEvent{
		OrderNo:     "BB20260831120000-abcd1234",
		BuyerID:     1,
		SellerID:    2,
		ProductID:   3,
		SubItemID:   4,
		RewardName:  "隐藏款",
		RewardImage: "/uploads/hidden.png",
		Price:       "59.90",
	}
}

func TestOrderEventValidate(t *testing.T) {
	if err := validEvent().Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*OrderEvent)
	}{
		{"missing order_no", func(e *OrderEvent) { e.OrderNo = "" }},
		{"missing buyer", func(e *OrderEvent) { e.BuyerID = 0 }},
		{"missing seller", func(e *OrderEvent) { e.SellerID = 0 }},
		{"missing product", func(e *OrderEvent) { e.ProductID = 0 }},
		{"missing sub item", func(e *OrderEvent) { e.SubItemID = 0 }},
		{"missing reward name", func(e *OrderEvent) { e.RewardName = "" }},
	}
	for _, tc := range cases {
		ev := validEvent()
		tc.mutate(&ev)
		if err := ev.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParseOrderEvent(t *testing.T) {
	values := map[string]interface{}{
		"order_no":     "BB20260831120000-abcd1234",
		"buyer_id":     "1",
		"seller_id":    "2",
		"product_id":   "3",
		"sub_item_id":  "4",
		"reward_name":  "隐藏款",
		"reward_image": "/uploads/hidden.png",
		"price":        "59.90",
	}
	ev, err := parseOrderEvent(values)
	if err != nil {
		t.Fatal(err)
	}
	if ev != validEvent() {
		t.Errorf("parsed event mismatch: %+v", ev)
	}
}

func TestParseOrderEventMissingField(t *testing.T) {
	values := map[string]interface{}{"order_no": "x"}
	if _, err := parseOrderEvent(values); err == nil {
		t.Error("expected error for missing fields")
	}
}

func TestParseOrderEventBadNumber(t *testing.T) {
	values := map[string]interface{}{
		"order_no":     "x",
		"buyer_id":     "not-a-number",
		"seller_id":    "2",
		"product_id":   "3",
		"sub_item_id":  "4",
		"reward_name":  "隐藏款",
		"reward_image": "/uploads/hidden.png",
		"price":        "59.90",
	}
	if _, err := parseOrderEvent(values); err == nil {
		t.Error("expected error for non-numeric buyer_id")
	}
}
