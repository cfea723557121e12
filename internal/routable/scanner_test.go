package routable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routable/routable-lint/internal/token"
	"github.com/routable/routable-lint/internal/tokenize"
)

const (
	msgROU100 = "ROU100 Triple double quotes not used for docstring"
	msgROU102 = "ROU102 Strings should not span multiple lines except comments or docstrings"
	msgROU104 = "ROU104 Multiple blank lines are not allowed after a non-section comment"
	msgROU109 = "ROU109 Disallow rename migrations"
	msgROU110 = "ROU110 Disallow .save() with no update_fields"
	msgROU111 = "ROU111 Disallow FeatureFlag creation in code"
	msgROU112 = "ROU112 Tasks mush have *args, **kwargs"
	msgROU113 = "ROU113 Tasks can not have priority in the signature"
)

func TestDetectorNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range Detectors() {
		assert.False(t, seen[d.Name()], "duplicate detector %q", d.Name())
		seen[d.Name()] = true
	}
	assert.Len(t, seen, 7)
}

func TestDocstrings(t *testing.T) {
	correct := map[string]string{
		"class": "class Foo:\n" +
			"    \"\"\" What a lovely docstring with lots of things to be talking about\"\"\"\n" +
			"    pass\n",
		"function": "def foo(x, y):\n" +
			"    \"\"\" What a lovely docstring with lots of things to be talking about \"\"\"\n" +
			"    return x + y\n",
		"method": "class Bar:\n" +
			"   def __init__(self, x):\n" +
			"       \"\"\" What a lovely docstring \"\"\"\n" +
			"       self.x = x\n",
		"comment between annotated params": "def foo(\n" +
			"    a: int,\n" +
			"    # b is optional\n" +
			"    b: str = \"\",\n" +
			"):\n" +
			"    \"\"\"Docstring.\"\"\"\n",
		"inline hash": "def foo(x, y):\n" +
			"    if x % 2 == 0: # TODO: why does this matter if it's even again?\n" +
			"        return x\n" +
			"\n" +
			"    return y\n",
	}
	for name, src := range correct {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, set(), results(t, src))
		})
	}

	incorrect := []struct {
		name string
		src  string
		pos  string
	}{
		{
			"class single quotes",
			"class Foo:\n    ''' Single triple quotes for a docstring explaining things? Oh no. '''\n    pass\n",
			"2:4",
		},
		{
			"class hash",
			"class Foo:\n    # Hash mon? Not as a docstring, try again with triple double quotes\n    pass\n",
			"2:4",
		},
		{
			"function hash",
			"def foo(x, y):\n    # Hash mon? Not as a docstring, try again with triple double quotes\n    return x + y\n",
			"2:4",
		},
		{
			"function single quotes",
			"def foo(x, y):\n    ''' Single triple quotes for a docstring explaining things? Oh no.?! '''\n    return x + y\n",
			"2:4",
		},
		{
			"method single quotes",
			"class Bar:\n    def __init__(self, x):\n        ''' Single quotes?! '''\n        self.x = x\n",
			"3:8",
		},
		{
			"method hash",
			"class Bar:\n    def __init__(self, x):\n        # Hash mon?\n        self.x = x\n",
			"3:8",
		},
		{
			"multi-line signature",
			"def foo(\n" +
				"    one_really_long_argument,\n" +
				"    another_really_long_argument\n" +
				"):\n" +
				"    ''' Single quotes?! '''\n" +
				"    return x + y\n",
			"5:4",
		},
		{
			"annotated multi-line signature",
			"def foo(\n" +
				"    a: int,\n" +
				"    b: str,\n" +
				") -> dict[str, int]:\n" +
				"    ''' Single quotes?! '''\n",
			"5:4",
		},
	}
	for _, tt := range incorrect {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, set(tt.pos+": "+msgROU100), results(t, tt.src))
		})
	}
}

func TestMultiLineStrings(t *testing.T) {
	correct := map[string]string{
		"comment block": "class Foo:\n" +
			"\n" +
			"    def foo(self, y):\n" +
			"        \"\"\" Get some things, do some stuff. \"\"\"\n" +
			"        z = x + y\n" +
			"\n" +
			"        \"\"\"\n" +
			"        This is a multi-line comment\n" +
			"        just talking about things and stuff.\n" +
			"        Ignore me.\n" +
			"        \"\"\"\n" +
			"\n" +
			"        return z\n",
		"file start": "\"\"\"hello there,\nhi\"\"\"\n",
		"docstring": "def foo(x, y):\n" +
			"    \"\"\"\n" +
			"    I am a docstring,\n" +
			"    leave me alone!\n" +
			"    \"\"\"\n" +
			"    return x + y\n",
		"concatenation": "def foo(x, y):\n" +
			"\n" +
			"    copy = (\n" +
			"        \"This is the text \"\n" +
			"        \"that is spanning multiple lines, \"\n" +
			"        \"now good bye.\"\n" +
			"    )\n" +
			"\n" +
			"    return f\"{x} {y} {copy}\"\n",
	}
	for name, src := range correct {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, set(), results(t, src))
		})
	}

	invalid := "def foo(x, y):\n" +
		"\n" +
		"    copy = \"\"\"This is the text\n" +
		"    that is spanning multiple lines,\n" +
		"    now good bye.\"\"\"\n" +
		"\n" +
		"    return f\"{x} {y} {copy}\"\n"
	assert.Equal(t, set("3:11: "+msgROU102), results(t, invalid))
}

func TestBlankLinesAfterComment(t *testing.T) {
	assert.Equal(t, set("3:0: "+msgROU104), results(t, "# Setup\n\n\nUser = get_user_model()\n"))

	beforeDedentSection := "class AffiliateModelSerializer(serializers.ModelSerializer):\n" +
		"    \"\"\"Affiliate model serializer.\"\"\"\n\n" +
		"    # Private attributes\n\n" +
		"    # Fields\n\n" +
		"    # Nested classes\n\n" +
		"    class Meta:\n" +
		"        model = Affiliate\n\n" +
		"        fields = [\n" +
		"            \"generic_url\",\n" +
		"            \"logo\",\n" +
		"            \"name\",\n" +
		"            \"primary_color\",\n" +
		"        ]\n\n" +
		"    # Methods\n\n\n" +
		"# --------------------\n" +
		"# Main model serializers\n" +
		"# --------------------\n"

	beforeDedentStatement := "class FeatureFlagModelSerializer(serializers.ModelSerializer):\n" +
		"    \"\"\"FeatureFlag model serializer.\"\"\"\n\n" +
		"    class Meta:\n" +
		"        model = FeatureFlag\n" +
		"        fields = [\"feature_flag\"]\n\n" +
		"    # Special method overrides\n\n" +
		"    # Private methods\n\n" +
		"    # Class methods\n\n" +
		"    # Properties\n\n" +
		"    # Overrides\n\n" +
		"    # Validation\n\n" +
		"    # Methods\n\n\n" +
		"@spicy_decorator\n" +
		"class FeatureSettingSerializer(NoCreateUpdateMixin, serializers.Serializer):\n" +
		"    pass\n"

	correct := map[string]string{
		"single blank line":    "# Setup\n\nUser = get_user_model()\n",
		"after section":        "# -------\n# Tests\n# -------\n\n\nX = 4",
		"after subsection":     "# =======\n# Tests\n# =======\n\n\nX = 4",
		"before dedent banner": beforeDedentSection,
		"before decorated def": beforeDedentStatement,
	}
	for name, src := range correct {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, set(), results(t, src))
		})
	}
}

func TestRenameMigrations(t *testing.T) {
	addMigration := `class Migration(migrations.Migration):
        dependencies = []
        operations = [
            migrations.AddField(
                model_name="model_one",
                name="swift_charge_option",
                field=models.TextField(blank=True, null=True),
            )
        ]`

	renameMigration := `class Migration(migrations.Migration):
        dependencies = []
        operations = [
            migrations.RenameField(
                model_name="model_one",
                old="field_one",
                new="field_two",
            )
        ]`

	assert.Equal(t, set(), results(t, addMigration))
	assert.Equal(t, set("4:12: "+msgROU109), results(t, renameMigration))
}

func TestSaveWithoutUpdateFields(t *testing.T) {
	withUpdateFields := "from app.models import Model\n" +
		"instance = Model(id=\"123\", name=\"test\")\n" +
		"instance.save(update_fields=[\"id\", \"name\"])\n"
	multiLineFlag := "from app.models import Model\n" +
		"instance = Model(id=\"123\", name=\"test\")\n" +
		"instance.save(  # multi-line with update_fields\n" +
		"    update_fields=[\"id\", \"name\"]\n" +
		")\n"
	without := "from app.models import Model\n" +
		"instance = Model(id=\"123\", name=\"test\")\n" +
		"instance.save()\n" +
		"instance.save(using=\"default\")\n"

	assert.Equal(t, set(), results(t, withUpdateFields))
	assert.Equal(t, set(), results(t, multiLineFlag))
	assert.Equal(t, set("3:0: "+msgROU110, "4:0: "+msgROU110), results(t, without))

	for _, comment := range saveAllowedComments {
		t.Run(comment, func(t *testing.T) {
			src := "from app.models import Model\n" +
				"instance = Model(id=\"123\", name=\"test\")\n" +
				"instance.save()  " + comment + "\n"
			assert.Equal(t, set(), results(t, src))
		})
	}
}

func TestFeatureFlagCreation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want map[string]bool
	}{
		{
			"create",
			"from feature_config.models import FeatureFlag\n" +
				"FeatureFlag.objects.create(company=company, feature_flag=flag)\n",
			set("2:0: " + msgROU111),
		},
		{
			"create multi-line",
			"from feature_config.models import FeatureFlag\n" +
				"FeatureFlag.objects.create(\n" +
				"    company=company, feature_flag=flag\n" +
				")\n",
			set("2:0: " + msgROU111),
		},
		{
			"get_or_create",
			"from feature_config.models import FeatureFlag\n" +
				"def method():\n" +
				"    FeatureFlag.objects.get_or_create(company=company, feature_flag=flag)\n",
			set("3:0: " + msgROU111),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, results(t, tt.src))
		})
	}

	withComment := func(comment string) string {
		return "from feature_config.models import FeatureFlag\n" +
			"FeatureFlag.objects.create(  " + comment + "\n" +
			"    company=company, feature_flag=flag\n" +
			")\n"
	}
	for _, comment := range featureFlagAllowedComments {
		assert.Equal(t, set(), results(t, withComment(comment)), comment)
	}
	for _, comment := range []string{"# valid for something else", " "} {
		assert.Equal(t, set("2:0: "+msgROU111), results(t, withComment(comment)), comment)
	}
}

func TestLinePatternsReportOncePerLine(t *testing.T) {
	tokens, err := tokenize.Tokenize("a.save(); b.save()\n")
	require.NoError(t, err)

	findings := saveWithoutUpdateFields{}.Scan(tokens)
	require.Len(t, findings, 1)
	assert.Equal(t, token.Position{Line: 1, Column: 0}, findings[0].Pos())
}

func task(signature string) string {
	return "\n@shared_task\ndef task_method(" + signature + "):\n    pass\n\n"
}

func multiLineTask(decorator string, params ...string) string {
	var b strings.Builder
	b.WriteString("\n" + decorator + "\ndef task_method(\n")
	for _, p := range params {
		b.WriteString("    " + p + ",\n")
	}
	b.WriteString("):    pass\n\n")
	return b.String()
}

func TestTaskSignatures(t *testing.T) {
	const withParams = "@shared_task(autoretry_for=(Exception,), default_retry_delay=20)"

	correct := map[string]string{
		"decorator with params": multiLineTask(withParams, "field_1", "field_2", "*args", "**kwargs"),
		"typed params":          multiLineTask("@shared_task", "field_1: str", "field_2: int", "*args", "**kwargs"),
		"multi-line":            multiLineTask("@shared_task", "field_1", "field_2", "*args", "**kwargs"),
		"single line":           task("field_1, field_2, *args, **kwargs"),
		"not a task":            "\n@other_task\ndef task_method(field_1):\n    pass\n",
	}
	for name, src := range correct {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, set(), results(t, src))
		})
	}

	incorrect := []struct {
		name string
		src  string
		pos  string
	}{
		{"decorator with params", multiLineTask(withParams, "field_1", "field_2"), "6:1"},
		{"typed params", multiLineTask("@shared_task", "field_1: str", "field_2: int"), "6:1"},
		{"multi-line missing args", multiLineTask("@shared_task", "field_1", "field_2", "**kwargs"), "7:1"},
		{"single line missing args", task("field_1, field_2, **kwargs"), "3:43"},
		{"multi-line missing kwargs", multiLineTask("@shared_task", "field_1", "field_2", "*args"), "7:1"},
		{"single line missing kwargs", task("field_1, field_2, *args"), "3:40"},
		{"multi-line missing both", multiLineTask("@shared_task", "field_1", "field_2"), "6:1"},
		{"single line missing both", task("field_1, field_2"), "3:33"},
	}
	for _, tt := range incorrect {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, set(tt.pos+": "+msgROU112), results(t, tt.src))
		})
	}
}

func TestTaskPriority(t *testing.T) {
	assert.Equal(t, set(), results(t, multiLineTask("@shared_task", "field_1", "field_2", "*args", "**kwargs")))

	tests := []struct {
		name   string
		params []string
		want   map[string]bool
	}{
		{
			"priority",
			[]string{"field_1", "field_2", "priority", "*args", "**kwargs"},
			set("6:4: " + msgROU113),
		},
		{
			"priority missing args",
			[]string{"field_1", "field_2", "priority", "**kwargs"},
			set("6:4: "+msgROU113, "8:1: "+msgROU112),
		},
		{
			"priority missing kwargs",
			[]string{"field_1", "field_2", "priority", "*args"},
			set("6:4: "+msgROU113, "8:1: "+msgROU112),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, results(t, multiLineTask("@shared_task", tt.params...)))
		})
	}
}

// Token findings share the byte-offset column unit of tree findings, so a
// two-byte "é" shifts priority to column 15.
func TestTaskPriorityColumnAfterNonASCII(t *testing.T) {
	src := "@shared_task\ndef f(a: \"é\", priority, *args, **kwargs):\n    pass\n"
	assert.Equal(t, set("2:15: "+msgROU113), results(t, src))
}

func TestUnclosedTaskHeaderIsDiscarded(t *testing.T) {
	tokens := []token.Token{
		{Kind: token.Op, Text: "@", Start: token.Position{Line: 1}},
		{Kind: token.Name, Text: "shared_task", Start: token.Position{Line: 1, Column: 1}},
		{Kind: token.EndMarker, Start: token.Position{Line: 2}},
	}
	assert.Empty(t, taskSignatures{}.Scan(tokens))
}
