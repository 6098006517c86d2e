package driver

// Cypher for the read path. Full-text lookups rely on the `nodeNames` and
// `passageText` indices created by the ingestion pipeline.
const (
	FulltextNodeSearchQuery = `
		CALL db.index.fulltext.queryNodes('nodeNames', $query)
		YIELD node, score
		WHERE node:Entity OR node:Text
		RETURN node.id AS id, node.name AS name, labels(node) AS labels,
			node.numeric_id AS numeric_id, score
		ORDER BY score DESC, id ASC
		LIMIT $k
	`

	FulltextPassageSearchQuery = `
		CALL db.index.fulltext.queryNodes('passageText', $query)
		YIELD node, score
		WHERE node:Passage
		RETURN node.id AS id, node.text AS text, node.source_id AS source_id,
			node.position AS position, score
		ORDER BY score DESC, id ASC
		LIMIT $k
	`

	NeighborsDepth1Query = `
		MATCH (n {id: $node_id})-[r]-(m)
		WHERE (m:Entity OR m:Text) AND ($type = '' OR type(r) = $type)
		RETURN DISTINCT m.id AS id, m.name AS name, labels(m) AS labels,
			m.numeric_id AS numeric_id
		ORDER BY id ASC
	`

	NeighborsDepth2Query = `
		MATCH (n {id: $node_id})-[r*1..2]-(m)
		WHERE (m:Entity OR m:Text)
			AND ($type = '' OR all(rel IN r WHERE type(rel) = $type))
		RETURN DISTINCT m.id AS id, m.name AS name, labels(m) AS labels,
			m.numeric_id AS numeric_id
		ORDER BY id ASC
	`

	PassagesForNodeQuery = `
		MATCH (p:Passage)-[:MENTIONS]->(n {id: $node_id})
		RETURN p.id AS id, p.text AS text, p.source_id AS source_id,
			p.position AS position
		ORDER BY id ASC
	`

	PassagesByIDsQuery = `
		MATCH (p:Passage)
		WHERE p.id IN $ids
		RETURN p.id AS id, p.text AS text, p.source_id AS source_id,
			p.position AS position
		ORDER BY id ASC
	`

	ConceptsForTextQuery = `
		MATCH (n)-[:HAS_CONCEPT]->(c:Concept)
		WHERE toLower(c.text) = toLower($text)
		RETURN DISTINCT c.id AS id, c.text AS text
		ORDER BY id ASC
	`

	PassagesForConceptQuery = `
		MATCH (c:Concept {id: $concept_id})<-[:HAS_CONCEPT]-(n)<-[:MENTIONS]-(p:Passage)
		RETURN DISTINCT p.id AS id, p.text AS text, p.source_id AS source_id,
			p.position AS position
		ORDER BY id ASC
	`

	ListDatabasesQuery = `SHOW DATABASES YIELD name RETURN name ORDER BY name`

	StatsQuery = `
		MATCH (n)
		WITH
			count(CASE WHEN n:Entity THEN 1 END) AS nodes,
			count(CASE WHEN n:Passage THEN 1 END) AS passages,
			count(CASE WHEN n:Concept THEN 1 END) AS concepts
		MATCH ()-[r]->()
		RETURN nodes, passages, concepts, count(r) AS edges
	`
)
