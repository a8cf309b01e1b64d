package sqlinline

const QSelectIntegrationToken = `--sql dfba83f8-2e0b-4287-9c81-91b62184e0e3
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 189c4a22-cb63-4c81-815c-9e547ebaf72f
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
