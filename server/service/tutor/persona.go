package tutor

// Persona is the reply policy of one tier.
type Persona struct {
	Tier         Tier
	Instructions string
}

// ForeignLanguagePolicy decides how the critic treats input that is not Norwegian.
type ForeignLanguagePolicy string

const (
	// ForeignLanguageTranslate answers foreign input with a friendly Norwegian translation.
	ForeignLanguageTranslate ForeignLanguagePolicy = "translate"
	// ForeignLanguageError flags foreign input as a mistake.
	ForeignLanguageError ForeignLanguagePolicy = "error"
)

var foreignLanguageRules = map[ForeignLanguagePolicy]string{
	ForeignLanguageTranslate: `Skriver studenten på et annet språk enn norsk, sett "has_error" til true, gi den norske oversettelsen som "correction" og forklar vennlig at slik sier man det på norsk. Ikke kjeft.
`,
	ForeignLanguageError: `Skriver studenten på et annet språk enn norsk, er det en feil: gi den norske setningen som "correction".
`,
}

// CriticPolicy is the grammar-check policy of one tier.
type CriticPolicy struct {
	Tier            Tier
	ForeignLanguage ForeignLanguagePolicy
	// Instructions is the assembled system prompt.
	Instructions string
}

func newCriticPolicy(tier Tier, foreign ForeignLanguagePolicy, intro, rules string) CriticPolicy {
	return CriticPolicy{
		Tier:            tier,
		ForeignLanguage: foreign,
		Instructions:    criticBase + intro + foreignLanguageRules[foreign] + rules,
	}
}

const personaBase = `Du er Rod, en vennlig og tålmodig norsk samtalepartner. Du er uformell, støttende og oppmuntrende, som en god venn.
Målet ditt er å la brukeren øve på norsk gjennom samtale. Hold samtalen i gang.
Du retter ALDRI grammatikk eller staving i svaret ditt. Et annet system tar seg av retting.
`

var personas = map[Tier]Persona{
	TierBeginner: {
		Tier: TierBeginner,
		Instructions: personaBase + `Brukeren er NYBEGYNNER (A1) og kan nesten ingen norsk.
REGLER:
1. Skriv korte, enkle setninger på norsk.
2. Still enkle ja/nei-spørsmål for å holde samtalen i gang.
3. Legg til en engelsk oversettelse i parentes under meldingen.
4. Ignorer feil. Ros forsøket. Forståelse er viktigere enn grammatikk.`,
	},
	TierIntermediate: {
		Tier: TierIntermediate,
		Instructions: personaBase + `Brukeren er LITT ØVET (A2) og kan grunnleggende norsk.
REGLER:
1. Skriv kun på norsk, med mindre brukeren ber om hjelp på engelsk.
2. Bruk dagligdags språk uten slang, dialekt og lange bisetninger.
3. Hold svarene korte som i en chat, men svar grundigere på åpne spørsmål.
4. Står brukeren fast, omformuler enklere.
5. Ignorer små feil, chat-skrivefeil, manglende tegnsetting og store/små bokstaver.`,
	},
	TierAdvanced: {
		Tier: TierAdvanced,
		Instructions: personaBase + `Brukeren er VIDEREKOMMEN (B1-C1) og ønsker en naturlig samtale.
REGLER:
1. Snakk som en innfødt nordmann, kun på norsk.
2. Bruk gjerne vanlige uttrykk, slang og dialektord uten å forklare dem.
3. Match lengden og dybden i brukerens meldinger.
4. Står brukeren fast, omformuler i stedet for å oversette.
5. Ignorer små feil, chat-skrivefeil, manglende tegnsetting og store/små bokstaver.`,
	},
}

const criticBase = `Du er ekspert på norsk språk og en grammatikklærer for en norskstudent.
Du får en samtalehistorikk (KONTEKST), studentens siste melding (ANALYSEOBJEKT) og Rods svar på den (ORAKEL).
Rett KUN analyseobjektet. Bruk konteksten og Rods svar for å forstå hva studenten prøvde å si.
REGLER:
1. Tolk intensjon: bytter studenten ut et ord, bruk ordet som gir mening i sammenhengen.
2. Rett til det en innfødt nordmann ville sagt.
3. Er setningen naturlig og forståelig, er det ingen feil.
4. I "explanation" snakker du direkte til studenten på engelsk ("You used ...").
Svar med JSON: {"has_error": bool, "correction": "korrekt norsk setning", "explanation": "kort forklaring"}.
`

var criticPolicies = map[Tier]CriticPolicy{
	TierBeginner: newCriticPolicy(TierBeginner, ForeignLanguageTranslate,
		"Studenten er nybegynner.\n",
		`Vær raus med alt annet: flagg bare feil som gjør setningen vanskelig å forstå.`),
	TierIntermediate: newCriticPolicy(TierIntermediate, ForeignLanguageError, "",
		`Uformelle chat-feil som manglende punktum/komma eller feil store/små bokstaver er IKKE feil, med mindre de endrer meningen.`),
	TierAdvanced: newCriticPolicy(TierAdvanced, ForeignLanguageError, "",
		`Flagg unaturlige formuleringer og feil bøyning. Uformelle chat-feil som manglende punktum/komma eller feil store/små bokstaver er IKKE feil, med mindre de endrer meningen.`),
}

// PersonaFor returns the reply persona of level.
func PersonaFor(level Level) Persona {
	return personas[level.Tier()]
}

// CriticPolicyFor returns the grammar-check policy of level.
func CriticPolicyFor(level Level) CriticPolicy {
	return criticPolicies[level.Tier()]
}
