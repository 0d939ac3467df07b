package telemetry

import "testing"

func TestAppendAndRead(t *testing.T) {
	s := NewStore()
	s.Append("scan-1", "scanflow", "submit", map[string]any{"language": "python"})
	s.Append("scan-1", "scanflow", "poll", nil)
	s.Append("scan-2", "scanflow", "submit", nil)

	events := s.Read("scan-1")
	if len(events) != 2 {
		t.Fatalf("Read() returned %d events, want 2", len(events))
	}
	if events[0]["language"] != "python" {
		t.Fatalf("language = %v, want python", events[0]["language"])
	}
	if events[0]["scan_id"] != "scan-1" || events[0]["stage"] != "submit" {
		t.Fatalf("envelope fields missing: %v", events[0])
	}
	if events[0]["timestamp"] == nil {
		t.Fatalf("timestamp not stamped")
	}
}

func TestReadUnknownScan(t *testing.T) {
	s := NewStore()
	if got := s.Read("nope"); len(got) != 0 {
		t.Fatalf("Read(unknown) = %v, want empty", got)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("scan-1", "scanflow", "submit", nil)
	first := s.Read("scan-1")
	first[0] = nil
	if got := s.Read("scan-1"); got[0] == nil {
		t.Fatalf("Read() should return a copy of the event slice")
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	s.Append("scan-1", "scanflow", "submit", nil)
	if got := s.Read("scan-1"); len(got) != 0 {
		t.Fatalf("nil store Read() = %v, want empty", got)
	}
}
