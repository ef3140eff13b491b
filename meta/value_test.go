package meta

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFromAnyNested(t *testing.T) {
	v, err := FromAny(map[string]any{
		"rt": 0,
		"toks": []map[string]any{
			{"tok": "Pardon", "dn": []int{1, 2}},
		},
		"score": float32(0.5),
		"ok":    true,
		"none":  nil,
	})
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	rt, ok := v.Get("rt")
	require.True(t, ok)
	assert.Equal(t, KindInt, rt.Kind())
	assert.Equal(t, int64(0), rt.Int())

	toks, _ := v.Get("toks")
	require.Len(t, toks.List(), 1)
	dn, _ := toks.List()[0].Get("dn")
	assert.True(t, dn.Equal(Ints(1, 2)))

	score, _ := v.Get("score")
	assert.Equal(t, KindFloat, score.Kind())
	none, _ := v.Get("none")
	assert.True(t, none.IsNull())
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"channel", make(chan int)},
		{"func", func() {}},
		{"int keyed map", map[int]string{1: "a"}},
		{"nested struct", []any{struct{ A int }{1}}},
		{"uint overflow", uint64(math.MaxUint64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromAny(tc.in)
			assert.ErrorIs(t, err, ErrUnsupportedMetaValue)
		})
	}
}

func TestJSONRoundTripKeepsKinds(t *testing.T) {
	in := Object(Map{
		"int":    Int(3),
		"float":  Float(3),
		"small":  Float(1e-9),
		"text":   String("Who's asking?"),
		"list":   List(Int(1), Float(2.5), Null(), Bool(false)),
		"nested": Object(Map{"empty": List(), "obj": Object(nil)}),
	})

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Equal(out), "got %s", out)

	f, _ := out.Get("float")
	assert.Equal(t, KindFloat, f.Kind())
	i, _ := out.Get("int")
	assert.Equal(t, KindInt, i.Kind())
}

func TestMapJSONRoundTrip(t *testing.T) {
	in := Map{"sentences": Strings("Pardon me.", "Are you Aaron Burr, sir?")}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sentences":["Pardon me.","Are you Aaron Burr, sir?"]}`, string(b))

	var out Map
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Equal(out))
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := json.Marshal(Object(Map{"x": Float(math.NaN())}))
	assert.ErrorIs(t, err, ErrUnsupportedMetaValue)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(MustFromAny(map[string]any{"a": []any{1, "b", 2.5}})))

	err := Map{"deep": List(Object(Map{"x": Float(math.Inf(1))}))}.Validate()
	require.ErrorIs(t, err, ErrUnsupportedMetaValue)
	assert.Contains(t, err.Error(), "$.deep[0].x")

	assert.ErrorIs(t, Validate(String("\xff")), ErrUnsupportedMetaValue)
	assert.ErrorIs(t, Map{"\xfe": Null()}.Validate(), ErrUnsupportedMetaValue)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Map{"toks": List(Object(Map{"dn": Ints(1)}))}
	cp := orig.Clone()
	cp["toks"].List()[0].Map()["dn"] = Ints(9)

	dn, _ := orig["toks"].List()[0].Get("dn")
	assert.True(t, dn.Equal(Ints(1)))
}

func TestEqualDistinguishesKinds(t *testing.T) {
	assert.False(t, Int(1).Equal(Float(1)))
	assert.False(t, List().Equal(Object(nil)))
	assert.True(t, Map(nil).Equal(Map{}))
	assert.False(t, Strings("a").Equal(Strings("a", "b")))
}

func TestMarshalYAML(t *testing.T) {
	b, err := yaml.Marshal(Map{"speaker": String("burr"), "turn": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "speaker: burr\nturn: 2\n", string(b))
}
