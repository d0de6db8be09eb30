package extract

// Prompt templates for the map and reduce stages. The sources are largely
// Chinese-language wikis, so prompts allow bilingual values but demand
// English JSON keys.

const mapPromptTemplate = `You are extracting Pokemon data from a fragment of a web page.
The page describes the Pokemon "%s". The fragment may be in Chinese or English.

Extract whatever of the following you can find in this fragment and return it
as a single JSON object with exactly these keys (omit a key when the fragment
has nothing for it):

{
  "types": ["..."],                 // elemental types, e.g. "Grass", "草"
  "abilities": ["..."],             // abilities, hidden abilities included
  "base_stats": {"hp": "...", "attack": "...", "defense": "...", "special_attack": "...", "special_defense": "...", "speed": "..."},
  "evolution_chain": "...",         // evolution line as one string
  "basic_info": {"name": "...", "dex_number": "...", "height": "...", "weight": "...", "category": "..."},
  "game_info": {"generation": "...", "version_debut": "..."}
}

Rules:
- Return ONLY the JSON object, no commentary.
- Return {} when the fragment contains none of this information.
- Never invent values that are not in the fragment.

Fragment:
%s`

const reducePromptTemplate = `You are merging partial Pokemon data extracted from fragments of the
same page about "%s". Each partial result is a JSON object with some of the
keys: types, abilities, base_stats, evolution_chain, basic_info, game_info.

Merge them into ONE complete JSON object with all six keys:
- Union list values and drop duplicates.
- Prefer more specific values over vaguer ones when they conflict.
- Use "N/A" for anything no partial result provides.
- base_stats must contain hp, attack, defense, special_attack,
  special_defense and speed.
- Return ONLY the JSON object.

Partial results:
%s`

const simplifiedPromptTemplate = `Extract Pokemon data for "%s" from the text below. Reply with ONLY a JSON
object with the keys: types, abilities, base_stats (hp, attack, defense,
special_attack, special_defense, speed), evolution_chain, basic_info (name,
dex_number, height, weight, category), game_info (generation,
version_debut). Use "N/A" for anything missing.

Text:
%s`
