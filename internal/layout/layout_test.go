package layout

import "testing"

func TestResolve_VoteAliasPriority(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{"nominal alone", []string{"NR_ZONA", "QT_VOTOS_NOMINAIS"}, "QT_VOTOS_NOMINAIS"},
		{"nominal valid alone", []string{"QT_VOTOS_NOMINAIS_VALIDOS"}, "QT_VOTOS_NOMINAIS_VALIDOS"},
		{"plain alone", []string{"QT_VOTOS"}, "QT_VOTOS"},
		{"valid alone", []string{"QT_VOTOS_VALIDOS"}, "QT_VOTOS_VALIDOS"},
		{
			"nominal beats plain",
			[]string{"QT_VOTOS", "QT_VOTOS_NOMINAIS"},
			"QT_VOTOS_NOMINAIS",
		},
		{
			"nominal beats everything",
			[]string{"QT_VOTOS_VALIDOS", "QT_VOTOS", "QT_VOTOS_NOMINAIS_VALIDOS", "QT_VOTOS_NOMINAIS"},
			"QT_VOTOS_NOMINAIS",
		},
		{
			"plain beats valid",
			[]string{"QT_VOTOS_VALIDOS", "QT_VOTOS"},
			"QT_VOTOS",
		},
		{"none present", []string{"NR_ZONA", "NM_CANDIDATO"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Resolve(tt.columns)
			if m.Vote != tt.want {
				t.Errorf("Vote = %q, want %q", m.Vote, tt.want)
			}
			if m.HasVote() != (tt.want != "") {
				t.Errorf("HasVote() = %v inconsistent with Vote %q", m.HasVote(), m.Vote)
			}
		})
	}
}

func TestResolve_PayeeNameAliases(t *testing.T) {
	m := Resolve([]string{"NM_URNA_CANDIDATO", "NM_CANDIDATO"})
	if m.PayeeName != "NM_CANDIDATO" {
		t.Errorf("PayeeName = %q, want NM_CANDIDATO", m.PayeeName)
	}

	m = Resolve([]string{"NM_URNA_CANDIDATO"})
	if m.PayeeName != "NM_URNA_CANDIDATO" {
		t.Errorf("PayeeName = %q, want NM_URNA_CANDIDATO", m.PayeeName)
	}

	m = Resolve([]string{"NM_VOTAVEL"})
	if m.PayeeName != "NM_VOTAVEL" {
		t.Errorf("PayeeName = %q, want NM_VOTAVEL", m.PayeeName)
	}

	// Party-only files have no payee name; that is not an error.
	m = Resolve([]string{"SG_PARTIDO", "QT_VOTOS"})
	if m.PayeeName != "" {
		t.Errorf("PayeeName = %q, want absent", m.PayeeName)
	}
}

func TestResolve_PartyAliases(t *testing.T) {
	m := Resolve([]string{"NM_PARTIDO", "SG_PARTIDO"})
	if m.Party != "SG_PARTIDO" {
		t.Errorf("Party = %q, want SG_PARTIDO", m.Party)
	}
	m = Resolve([]string{"NM_PARTIDO"})
	if m.Party != "NM_PARTIDO" {
		t.Errorf("Party = %q, want NM_PARTIDO", m.Party)
	}
}

func TestResolve_ZoneSectionLiteralOnly(t *testing.T) {
	m := Resolve([]string{"NR_ZONA"})
	if m.Zone != "NR_ZONA" || m.Section != "" {
		t.Errorf("Zone = %q, Section = %q, want NR_ZONA and absent", m.Zone, m.Section)
	}
}

func TestResolve_PollingPlaceScan(t *testing.T) {
	tests := []struct {
		name      string
		columns   []string
		code      string
		placeName string
		address   string
	}{
		{
			"current layout",
			[]string{"NR_LOCAL_VOTACAO", "NM_LOCAL_VOTACAO", "DS_LOCAL_VOTACAO_ENDERECO"},
			"NR_LOCAL_VOTACAO", "NM_LOCAL_VOTACAO", "DS_LOCAL_VOTACAO_ENDERECO",
		},
		{
			"older address spelling",
			[]string{"CD_LOCAL_VOTACAO", "NM_LOCAL_VOTACAO", "DS_ENDERECO_LOCAL_VOTACAO"},
			"CD_LOCAL_VOTACAO", "NM_LOCAL_VOTACAO", "DS_ENDERECO_LOCAL_VOTACAO",
		},
		{"absent", []string{"NR_ZONA", "QT_VOTOS"}, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Resolve(tt.columns)
			if m.PollingPlaceCode != tt.code {
				t.Errorf("PollingPlaceCode = %q, want %q", m.PollingPlaceCode, tt.code)
			}
			if m.PollingPlaceName != tt.placeName {
				t.Errorf("PollingPlaceName = %q, want %q", m.PollingPlaceName, tt.placeName)
			}
			if m.PollingPlaceAddress != tt.address {
				t.Errorf("PollingPlaceAddress = %q, want %q", m.PollingPlaceAddress, tt.address)
			}
		})
	}
}

func TestResolver_ExtraVoteAliases(t *testing.T) {
	r := Resolver{ExtraVoteAliases: []string{"QT_VOTOS_TOTAL"}}

	m := r.Resolve([]string{"QT_VOTOS_TOTAL"})
	if m.Vote != "QT_VOTOS_TOTAL" {
		t.Errorf("Vote = %q, want extra alias", m.Vote)
	}

	// Built-in aliases still take priority over extras.
	m = r.Resolve([]string{"QT_VOTOS_TOTAL", "QT_VOTOS"})
	if m.Vote != "QT_VOTOS" {
		t.Errorf("Vote = %q, want QT_VOTOS", m.Vote)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	cols := []string{"QT_VOTOS", "NM_CANDIDATO", "SG_PARTIDO", "NR_ZONA", "NR_SECAO", "NR_VOTAVEL"}
	a := Resolve(cols)
	b := Resolve(cols)
	if a != b {
		t.Errorf("resolution not deterministic: %+v vs %+v", a, b)
	}
}
