package keys

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw      string
		kind     Kind
		code     string
		title    string
		platform string
	}{
		{"RJ-01234567.zip", KindCode, "RJ01234567", "", PlatformDLsite},
		{"rj_123456", KindCode, "RJ123456", "", PlatformDLsite},
		{"[RJ 0123456] Some Title", KindCode, "RJ0123456", "", PlatformDLsite},
		{"ＲＪ０１２３４５６７", KindCode, "RJ01234567", "", PlatformDLsite},
		{"  RJ01234567  ", KindCode, "RJ01234567", "", PlatformDLsite},
		{"My Cool Game.zip", KindTitle, "", "My Cool Game.zip", DefaultTitlePlatform},
		{"RJ12345", KindTitle, "", "RJ12345", DefaultTitlePlatform},
		{"RJ0123456789", KindTitle, "", "RJ0123456789", DefaultTitlePlatform},
		{"", KindTitle, "", "", DefaultTitlePlatform},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			key := Classify(tt.raw)
			if key.Kind != tt.kind {
				t.Fatalf("kind = %q, want %q", key.Kind, tt.kind)
			}
			if key.Code != tt.code {
				t.Fatalf("code = %q, want %q", key.Code, tt.code)
			}
			if key.Title != tt.title {
				t.Fatalf("title = %q, want %q", key.Title, tt.title)
			}
			if key.Platform != tt.platform {
				t.Fatalf("platform = %q, want %q", key.Platform, tt.platform)
			}
			if key.Raw != tt.raw {
				t.Fatalf("raw = %q, want %q", key.Raw, tt.raw)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{"RJ-01234567.zip", "My Cool Game.zip", "ゲーム RJ01234567", "\x00\xff", "  "}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 5; i++ {
			if got := Classify(in); got != first {
				t.Fatalf("Classify(%q) changed between calls: %+v vs %+v", in, first, got)
			}
		}
	}
}

func TestClassifierPlatformHint(t *testing.T) {
	c := Classifier{TitlePlatform: "Local"}
	if key := c.Classify("Some Game", ""); key.Platform != "local" {
		t.Fatalf("title platform = %q, want local", key.Platform)
	}
	if key := c.Classify("Some Game", "itch"); key.Platform != "itch" {
		t.Fatalf("hinted title platform = %q, want itch", key.Platform)
	}
	if key := c.Classify("RJ01234567", "mirror"); key.Platform != "mirror" || key.Code != "RJ01234567" {
		t.Fatalf("hinted code key = %+v", key)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := map[string]string{
		"rj-01234567":        "RJ01234567",
		"RJ_01234567":        "RJ01234567",
		"  My   Cool\tGame ": "my cool game",
		"ＭＹ ＧＡＭＥ":          "my game",
	}
	for in, want := range tests {
		if got := NormalizeIdentifier(in); got != want {
			t.Fatalf("NormalizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestItemKeyID(t *testing.T) {
	code := Classify("RJ01234567")
	if code.ID() != "RJ01234567" || code.String() != "dlsite/RJ01234567" {
		t.Fatalf("unexpected code key id: %q %q", code.ID(), code.String())
	}
	title := Classify("My Cool Game")
	if title.ID() != "my cool game" {
		t.Fatalf("unexpected title id: %q", title.ID())
	}
	if !IsCode("RJ01234567") || IsCode("rj01234567") {
		t.Fatal("IsCode should only accept normalized codes")
	}
}
