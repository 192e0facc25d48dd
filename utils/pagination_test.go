package utils

import "testing"

func TestGetPaginationParams(t *testing.T) {
	offset := 40
	limit := 500

	gotOffset, gotLimit := GetPaginationParams(&offset, &limit)
	if gotOffset != 40 {
		t.Errorf("expected offset 40, got %d", gotOffset)
	}
	if gotLimit != pageSizeMax {
		t.Errorf("expected limit capped at %d, got %d", pageSizeMax, gotLimit)
	}

	gotOffset, gotLimit = GetPaginationParams(nil, nil)
	if gotOffset != 0 || gotLimit != pageSizeDefault {
		t.Errorf("expected defaults 0/%d, got %d/%d", pageSizeDefault, gotOffset, gotLimit)
	}
}

func TestGetPageParams(t *testing.T) {
	limit := 25

	page := 3
	gotOffset, gotLimit := GetPageParams(&page, &limit)
	if gotOffset != 50 || gotLimit != 25 {
		t.Errorf("expected page 3 to map to offset 50 limit 25, got %d/%d", gotOffset, gotLimit)
	}

	page = 1
	gotOffset, gotLimit = GetPageParams(&page, &limit)
	if gotOffset != 0 || gotLimit != 25 {
		t.Errorf("expected page 1 to map to offset 0 limit 25, got %d/%d", gotOffset, gotLimit)
	}

	page = -2
	gotOffset, _ = GetPageParams(&page, nil)
	if gotOffset != 0 {
		t.Errorf("expected negative page to map to offset 0, got %d", gotOffset)
	}

	gotOffset, gotLimit = GetPageParams(nil, nil)
	if gotOffset != 0 || gotLimit != pageSizeDefault {
		t.Errorf("expected defaults 0/%d, got %d/%d", pageSizeDefault, gotOffset, gotLimit)
	}
}
