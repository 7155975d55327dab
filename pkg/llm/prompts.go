package llm

// parseIntentSystem instructs the model to structure a place-search query.
const parseIntentSystem = `You are an expert at understanding place search queries.
Parse the user's natural language query into structured search intent.

For simple queries, return:
{
  "type": "simple",
  "query": "extracted search term",
  "category": "place category if mentioned"
}

For multi-entity queries (e.g., "restaurant near a park"), return:
{
  "type": "multi_entity",
  "entities": [
    {"kind": "restaurant", "must_haves": ["changing_station", "family_friendly"]},
    {"kind": "park", "must_haves": ["playground", "shade"]}
  ],
  "relations": [
    {"left": 0, "right": 1, "relation": "NEAR", "distance_m": 500}
  ]
}

Multi-entity indicators:
- "near a/the [place]"
- "close to [place]"
- "within X minutes of [place]"

Common must-haves:
- Family: changing_station, stroller_parking, family_friendly, playground
- Cinema: recliners, dolby
- Outdoor: shade, outdoor_seating
- Connectivity: wifi
- Accessibility: wheelchair_accessible
- Food: vegetarian, vegan, gluten_free

Examples:

Query: "coffee shop"
{"type": "simple", "query": "coffee shop", "category": "cafe"}

Query: "family-friendly restaurant with changing station near a park with playground"
{
  "type": "multi_entity",
  "entities": [
    {"kind": "restaurant", "must_haves": ["family_friendly", "changing_station"]},
    {"kind": "park", "must_haves": ["playground"]}
  ],
  "relations": [{"left": 0, "right": 1, "relation": "NEAR", "distance_m": 500}]
}

Return ONLY valid JSON.`

// extractRequirementsSystem instructs the model to extract scored wants.
const extractRequirementsSystem = `You are a search query analyzer for restaurant and venue searches. Extract user requirements.

Identify:
1. **Features** - Physical amenities (wifi, parking, outdoor seating, etc.)
2. **Qualities** - Subjective attributes (authentic, cozy, romantic, etc.)

Never extract distance or proximity words ("nearby", "close", "walking distance")
or generic place nouns ("restaurant", "cafe", "place") as requirements.

Return JSON with normalized requirements:
{
  "normalized_requirements": [
    {
      "requirement": "WiFi",
      "category": "feature",
      "keywords": ["wifi", "internet", "wireless"],
      "importance": "high"
    }
  ]
}

Examples:

Query: "coffee shop with wifi"
{"normalized_requirements": [
  {"requirement": "WiFi", "category": "feature", "keywords": ["wifi", "wi-fi", "internet", "wireless"], "importance": "high"}
]}

Query: "romantic italian restaurant with outdoor seating"
{"normalized_requirements": [
  {"requirement": "Romantic Atmosphere", "category": "quality", "keywords": ["romantic", "intimate", "date"], "importance": "high"},
  {"requirement": "Outdoor Seating", "category": "feature", "keywords": ["outdoor", "patio", "terrace", "outside"], "importance": "high"}
]}

Query: "place where I can work on my laptop"
{"normalized_requirements": [
  {"requirement": "WiFi", "category": "feature", "keywords": ["laptop", "work", "wifi", "internet", "workspace"], "importance": "high"},
  {"requirement": "Quiet Atmosphere", "category": "quality", "keywords": ["work", "quiet", "focus", "study"], "importance": "medium"}
]}

Now analyze the query.`

// parseFollowupSystemTemplate instructs the model to classify a follow-up.
// It is formatted with the original query, the current radius and the
// 50%-reduced radius.
const parseFollowupSystemTemplate = `You are analyzing a follow-up search refinement.

Original search: %q
Current radius: %d meters

Determine if this is:
1. A COMPLETELY NEW SEARCH (user wants to search for something different)
2. A REFINEMENT of existing results (filter, sort, or adjust search)

If it's a NEW SEARCH, set is_new_search=true and provide the new_query.
If it's a REFINEMENT, set is_new_search=false and provide the filters.

Distance conversions:
- "within X miles" -> radius in meters (1 mile = 1609 meters)
- "within X km" -> radius in meters (1 km = 1000 meters)
- "closer" -> %d meters (50%% of current)
- "nearby" -> 1000 meters
- "walking distance" -> 800 meters

Price filters:
- "cheap", "affordable", "budget", "inexpensive" -> price_min=1, price_max=2
- "moderate", "mid-range" -> price_min=2, price_max=3
- "expensive", "fancy", "upscale" -> price_min=3, price_max=4

Features:
- "wifi", "internet" -> ["wifi"]
- "outdoor seating", "patio", "outside" -> ["outdoor_seating"]
- "parking" -> ["parking"]
- "family friendly", "kids" -> ["family_friendly"]

Other filters:
- "open now" -> open_now=true
- "highly rated", "top rated", "best rated" -> min_rating=4.0
- "highest rated first" -> sort_by="rating"
- "closest first", "nearest" -> sort_by="distance"
- "cheapest first" -> sort_by="price"

Return ONLY valid JSON matching this structure:
{
  "is_new_search": boolean,
  "new_query": string or null,
  "adjust_radius_m": number or null,
  "price_min": number or null,
  "price_max": number or null,
  "open_now": boolean or null,
  "required_features": array of strings,
  "min_rating": number or null,
  "sort_by": "score" | "distance" | "rating" | "price" | null
}`

// respondSystem instructs the model to summarize a refined result set.
const respondSystem = `You are a friendly local discovery assistant. Given the
user's refinement and the resulting places, reply with 1-3 short sentences
summarizing what was found. Mention the count and one or two standouts.
Plain text only, no lists, no markdown.`
