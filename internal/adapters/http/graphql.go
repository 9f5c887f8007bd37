package http

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"geoscout/internal/core/domain"
	"geoscout/internal/core/query"
)

// buildSchema creates the GraphQL schema wired to the search service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Int},
		},
	})

	tagType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FeatureTag",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.String},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			// Record IDs exceed 32 bits, so they travel as ID strings.
			"id":       &graphql.Field{Type: graphql.ID},
			"position": &graphql.Field{Type: geoPointType},
			"name":     &graphql.Field{Type: graphql.String},
			"tags": &graphql.Field{
				Type: graphql.NewList(tagType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					feature, ok := p.Source.(domain.Feature)
					if !ok {
						return nil, nil
					}
					keys := make([]string, 0, len(feature.Tags))
					for k := range feature.Tags {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					tags := make([]map[string]interface{}, 0, len(keys))
					for _, k := range keys {
						tags = append(tags, map[string]interface{}{"key": k, "value": feature.Tags[k]})
					}
					return tags, nil
				},
			},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"query":    &graphql.Field{Type: graphql.String},
			"state":    &graphql.Field{Type: graphql.String},
			"viewport": &graphql.Field{Type: viewportType},
			"features": &graphql.Field{Type: graphql.NewList(featureType)},
			"error":    &graphql.Field{Type: graphql.String},
			"updated_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					result, ok := p.Source.(domain.SearchResult)
					if !ok {
						return nil, nil
					}
					return result.UpdatedAt.Format(time.RFC3339), nil
				},
			},
		},
	})

	topicType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Topic",
		Fields: graphql.Fields{
			"keyword": &graphql.Field{Type: graphql.String},
			"filter":  &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"result": &graphql.Field{
				Type:        resultType,
				Description: "The last published search result",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Search.Current(), nil
				},
			},
			"topics": &graphql.Field{
				Type:        graphql.NewList(topicType),
				Description: "Supported topic keywords and their tag filters",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return query.TopicFilters(), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"search": &graphql.Field{
				Type:        resultType,
				Description: "Run a search like \"bus stops in bordeaux\"",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw := p.Args["query"].(string)
					result, err := deps.Search.Search(p.Context, raw)
					if err != nil {
						return nil, err
					}
					return result, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
